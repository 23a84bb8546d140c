package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/ghostpost/ghostpost/internal/types"
)

// ErrNoPoster is returned by an Invoker for a platform it cannot post to
var ErrNoPoster = errors.New("no poster configured")

// Invoker runs the poster for one queue entry on one platform
type Invoker interface {
	Invoke(ctx context.Context, platform string, entry types.QueueEntry) error
}

// ExecInvoker runs each poster as a subprocess. Commands maps a platform to the
// argv prefix; image, caption and tags are appended as flags. Poster output is
// copied into the log line by line.
type ExecInvoker struct {
	Commands map[string][]string
	Log      logrus.FieldLogger
}

// Args returns the full argv for posting entry on platform
func (e *ExecInvoker) Args(platform string, entry types.QueueEntry) ([]string, error) {
	prefix := e.Commands[platform]
	if len(prefix) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPoster, platform)
	}
	args := append([]string{}, prefix...)
	args = append(args, "--image", entry.ImagePath, "--caption", entry.Caption)
	if entry.Tags != "" {
		args = append(args, "--tags", entry.Tags)
	}
	return args, nil
}

// Invoke runs the poster and waits for it. A non-zero exit is an error.
func (e *ExecInvoker) Invoke(ctx context.Context, platform string, entry types.QueueEntry) error {
	args, err := e.Args(platform, entry)
	if err != nil {
		return err
	}

	out := e.Log.WithFields(logrus.Fields{"platform": platform, "source": "poster"}).WriterLevel(logrus.InfoLevel)
	defer out.Close()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("poster exited with code %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("failed to run poster: %w", err)
	}
	return nil
}
