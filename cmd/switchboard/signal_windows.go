//go:build windows

package main

import (
	"os"
)

// terminationSignals interrupt the running turn, or exit at the prompt.
// Windows primarily uses os.Interrupt (Ctrl+C).
var terminationSignals = []os.Signal{os.Interrupt}
