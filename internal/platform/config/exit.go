package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf prints a formatted message on its own line to stderr and exits
// with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, strings.TrimRight(format, "\n")+"\n", args...)
	exit(1)
}
