package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecDevice records by running an external recorder that writes audio to
// stdout, e.g. "arecord -q -f cd -t wav". The recorder is interrupted on
// Close and killed if it has not exited after KillAfter.
type ExecDevice struct {
	Command   []string
	ChunkSize int
	KillAfter time.Duration
}

func (d ExecDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if len(d.Command) == 0 {
		return nil, fmt.Errorf("%w: no recorder command", ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(d.Command[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	cmd := exec.Command(path, d.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	killAfter := d.KillAfter
	if killAfter <= 0 {
		killAfter = 2 * time.Second
	}

	var timer *time.Timer
	stop := func() {
		_ = cmd.Process.Signal(os.Interrupt)
		timer = time.AfterFunc(killAfter, func() { _ = cmd.Process.Kill() })
	}
	finish := func() error {
		err := cmd.Wait()
		if timer != nil {
			timer.Stop()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// interrupted recorders exit non-zero
			return nil
		}
		return err
	}

	return newReaderStream(stdout, d.ChunkSize, stop, finish), nil
}
