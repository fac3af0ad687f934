package main

import (
	"errors"
	"fmt"
	"io"

	pmaerrors "pma/internal/errors"
)

const (
	exitFailure = 1
	// exitIssuesFound is returned when --fail-on matched at least one issue.
	exitIssuesFound = 2
)

// exitError carries a process exit code through cobra's RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// printError writes err and any suggested fixes to w and returns the exit
// code for it.
func printError(w io.Writer, err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(w, ee.msg)
		}
		return ee.code
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	var pe *pmaerrors.PmaError
	if errors.As(err, &pe) && len(pe.SuggestedFixes) > 0 {
		fmt.Fprintln(w, "Suggestions:")
		for _, fix := range pe.SuggestedFixes {
			switch fix.Type {
			case pmaerrors.RunCommand:
				fmt.Fprintf(w, "  - %s: %s\n", fix.Description, fix.Command)
			case pmaerrors.EditConfig:
				fmt.Fprintf(w, "  - %s (%s)\n", fix.Description, fix.Key)
			default:
				fmt.Fprintf(w, "  - %s\n", fix.Description)
			}
		}
	}
	return exitFailure
}
