// ./main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/xkilldash9x/linkmcp/cmd"
	"github.com/xkilldash9x/linkmcp/internal/observability"
)

const panicLogFile = "linkmcp-panic.log"

// Function variables so tests can observe the crash path.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	panicDir    = os.TempDir
)

// main is the entry point for the linkmcp binary.
func main() {
	defer handlePanic()
	cmd.Execute()
}

// handlePanic writes the stack of an unrecovered panic to a file in the temp
// directory and exits with status 2.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	path := filepath.Join(panicDir(), panicLogFile)
	if err := osWriteFile(path, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(2)
		return
	}
	fmt.Fprintf(os.Stderr, "linkmcp crashed. Details logged to %s\n", path)
	osExit(2)
}
