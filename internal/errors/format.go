package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format returns a multi-line, human-readable rendering of the error.
func (e *Error) Format() string {
	var b strings.Builder

	header := e.Message
	if e.Code != "" {
		header = fmt.Sprintf("%s [%s]", e.Message, e.Code)
	}
	b.WriteString(color(colorRed+colorBold, header))
	b.WriteString("\n")

	if e.Detail != "" {
		b.WriteString("  ")
		b.WriteString(e.Detail)
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		b.WriteString(color(colorGray, "  caused by: "+e.Wrapped.Error()))
		b.WriteString("\n")
	}
	if e.Suggestion != "" {
		b.WriteString(color(colorYellow, "  hint: "+e.Suggestion))
		b.WriteString("\n")
	}
	return b.String()
}

// Print writes err to w, using Format for structured errors.
func Print(w io.Writer, err error) {
	var e *Error
	if errors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "%s %s\n", color(colorRed, "Error:"), err)
}
