package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Color definitions for terminal output
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// Out is where the print helpers write. Tests swap it for a buffer.
var Out io.Writer = os.Stdout

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	successColor.Fprintf(Out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	errorColor.Fprintf(Out, "✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	warningColor.Fprintf(Out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	infoColor.Fprintf(Out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// PrintBold prints a bold message
func PrintBold(format string, args ...interface{}) {
	boldColor.Fprintln(Out, fmt.Sprintf(format, args...))
}

// Println writes plain text.
func Println(text string) {
	fmt.Fprintln(Out, text)
}

// PrintSuccessBox prints a success message in a box
func PrintSuccessBox(title, content string) {
	fmt.Fprintln(Out, Styles.SuccessBox.Render(fmt.Sprintf("%s\n\n%s", successColor.Sprint(title), content)))
}

// PrintErrorBox prints an error message in a box
func PrintErrorBox(title, content string) {
	fmt.Fprintln(Out, Styles.ErrorBox.Render(fmt.Sprintf("%s\n\n%s", errorColor.Sprint(title), content)))
}

// PrintInfoBox prints an informational message in a box
func PrintInfoBox(title, content string) {
	fmt.Fprintln(Out, Styles.InfoBox.Render(fmt.Sprintf("%s\n\n%s", boldColor.Sprint(title), content)))
}
