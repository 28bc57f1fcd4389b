package trace

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// Debuger prints verbose-gated diagnostics.
type Debuger interface {
	DbgPrint(format string, args ...any)
}

func NewDebuger(verbose bool) Debuger {
	return &debuger{verbose: verbose}
}

type debuger struct {
	verbose bool
}

var debugMode atomic.Bool

func EnableDebugMode() {
	debugMode.Store(true)
}

// DbgPrint writes the message to stderr, one highlighted line per input
// line, when debug mode is on.
func DbgPrint(format string, args ...any) {
	if !debugMode.Load() {
		return
	}
	dbgPrint(format, args...)
}

func dbgPrint(format string, args ...any) {
	message := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
	var buffer bytes.Buffer
	for _, s := range strings.Split(message, "\n") {
		_, _ = buffer.WriteString("\x1b[33m* ")
		_, _ = buffer.WriteString(s)
		_, _ = buffer.WriteString("\x1b[0m\n")
	}
	_, _ = os.Stderr.Write(buffer.Bytes())
}

func (d *debuger) DbgPrint(format string, args ...any) {
	if !d.verbose {
		return
	}
	dbgPrint(format, args...)
}

var (
	_ Debuger = &debuger{}
)
