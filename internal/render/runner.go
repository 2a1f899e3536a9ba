package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an ffmpeg invocation. Injected so tests can count calls
// without a binary on the machine.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// execRunner shells out to the configured ffmpeg binary.
type execRunner struct {
	bin string
}

func (r *execRunner) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > 2000 {
			msg = msg[len(msg)-2000:]
		}
		return fmt.Errorf("%s: %w: %s", r.bin, err, msg)
	}
	return nil
}
