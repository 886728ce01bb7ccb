package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"fortio.org/log"
	"grol.io/rhai/extensions"
)

// RunCommand runs a `!` line of the REPL: cmd split with
// [extensions.SplitCommand], its output and errors going to out.
func RunCommand(ctx context.Context, cmd string, out io.Writer) error {
	parts, err := extensions.SplitCommand(cmd)
	if err != nil {
		return fmt.Errorf("error parsing command: %w", err)
	}
	if len(parts) == 0 {
		return errors.New("no command provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.LogVf("Running command: %s %d args (%v)", parts[0], len(parts)-1, parts[1:])
	c := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // user typed it.
	c.Stdout = out
	c.Stderr = out
	return c.Run()
}
