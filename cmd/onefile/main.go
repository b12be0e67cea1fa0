package main

import (
	"fmt"
	"os"

	"onefile/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		for _, fix := range fixesFor(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", fix)
		}
		os.Exit(1)
	}
}

// errorMessage strips the code prefix from coded errors.
func errorMessage(err error) string {
	if e, ok := errors.AsError(err); ok {
		if cause := e.Unwrap(); cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, cause)
		}
		return e.Message
	}
	return err.Error()
}

func fixesFor(err error) []string {
	e, ok := errors.AsError(err)
	if !ok {
		return nil
	}
	var hints []string
	for _, fix := range e.SuggestedFixes {
		switch {
		case fix.Command != "":
			hints = append(hints, fmt.Sprintf("run `%s` (%s)", fix.Command, fix.Description))
		case fix.Key != "":
			hints = append(hints, fmt.Sprintf("set %s: %s", fix.Key, fix.Description))
		}
	}
	return hints
}
