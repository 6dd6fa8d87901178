package target

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

var (
	execCommand        = exec.Command
	execCommandContext = exec.CommandContext
)

func run(ctx context.Context, name string, args ...string) error {
	cmd := execCommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}
