// Command descarte records recycling disposals and serves their aggregated
// environmental impact.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rshade/descartecerto/internal/cli"
	"github.com/rshade/descartecerto/internal/impact"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // Overridden by the linker.

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := cli.NewRootCmd(version)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps rejected input to 2 and every other failure to 1.
func exitCode(err error) int {
	if impact.IsValidationError(err) {
		return exitValidation
	}
	return exitError
}
