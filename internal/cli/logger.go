package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// ColorLogger prints prefixed status lines for interactive use. All
// status output goes to stderr so stdout stays clean for results.
type ColorLogger struct {
	out          io.Writer
	infoColor    *color.Color
	successColor *color.Color
	warningColor *color.Color
	errorColor   *color.Color
}

func newColorLogger() *ColorLogger {
	return &ColorLogger{
		out:          os.Stderr,
		infoColor:    color.New(color.FgBlue, color.Bold),
		successColor: color.New(color.FgGreen, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		errorColor:   color.New(color.FgRed, color.Bold),
	}
}

func (l *ColorLogger) Info(msg string, args ...any) {
	l.print(l.infoColor.Sprint("[INFO]"), msg, args...)
}

func (l *ColorLogger) Success(msg string, args ...any) {
	l.print(l.successColor.Sprint("[SUCCESS]"), msg, args...)
}

func (l *ColorLogger) Warning(msg string, args ...any) {
	l.print(l.warningColor.Sprint("[WARNING]"), msg, args...)
}

func (l *ColorLogger) Error(msg string, args ...any) {
	l.print(l.errorColor.Sprint("[ERROR]"), msg, args...)
}

func (l *ColorLogger) print(prefix, msg string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", prefix, fmt.Sprintf(msg, args...))
}
