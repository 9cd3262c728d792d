package utils

import (
	"os"

	"github.com/muesli/termenv"
)

// output is the stream status messages go to. Colors are dropped when it
// is not a terminal.
var output = termenv.NewOutput(os.Stderr)

// Success highlights s in green.
func Success(s string) string {
	return output.String(s).Foreground(output.Color("10")).String()
}

// Failure highlights s in red.
func Failure(s string) string {
	return output.String(s).Foreground(output.Color("9")).String()
}

// Bold prints s in bold.
func Bold(s string) string {
	return output.String(s).Bold().String()
}
