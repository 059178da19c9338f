//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals interrupt the running turn, or exit at the prompt.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
