package output

import "strings"

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

// EscapeData escapes the message part of a workflow command.
func EscapeData(s string) string {
	return dataEscaper.Replace(s)
}

// EscapeProperty escapes a workflow command property value.
func EscapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}

// ErrorCommand formats an ::error workflow command, newline included. An
// empty title is omitted.
func ErrorCommand(title, message string) string {
	var b strings.Builder
	b.WriteString("::error")
	if title != "" {
		b.WriteString(" title=")
		b.WriteString(EscapeProperty(title))
	}
	b.WriteString("::")
	b.WriteString(EscapeData(message))
	b.WriteString("\n")
	return b.String()
}
