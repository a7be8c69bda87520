package main

import (
	"errors"
	"os"

	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

// exitAborted signals that at least one run aborted after loading its input.
const exitAborted = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrRunAborted.Code {
			os.Exit(exitAborted)
		}
		os.Exit(1)
	}
}
