package exec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// DefaultKillGrace is used when Command.KillGrace is zero.
const DefaultKillGrace = 5 * time.Second

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the process in its own process group and waits for it. When the
// timeout elapses or ctx ends, the whole group receives SIGTERM and, if still
// alive after KillGrace, SIGKILL. Anything left in the group once the leader
// has been reaped is killed as well.
func (r *ExecRunner) Run(ctx context.Context, c Command) Result {
	start := time.Now()

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	grace := c.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var killTimer *time.Timer
	cmd.Cancel = func() error {
		pgid := cmd.Process.Pid
		killTimer = time.AfterFunc(grace, func() {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		})
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return os.ErrProcessDone
			}
			return err
		}
		return nil
	}
	cmd.WaitDelay = grace

	out := &lockedBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return Result{
			ExitCode: 1,
			Output:   err.Error(),
			Duration: time.Since(start),
			StartErr: err,
		}
	}

	waitErr := cmd.Wait()
	if killTimer != nil {
		killTimer.Stop()
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	res := Result{
		Output:   out.String(),
		Duration: time.Since(start),
	}
	if runCtx.Err() != nil {
		if ctx.Err() != nil {
			res.Cancelled = true
		} else {
			res.TimedOut = true
		}
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
	default:
		res.ExitCode = 1
	}
	if (res.TimedOut || res.Cancelled) && res.ExitCode == 0 {
		// The process exited cleanly on SIGTERM; the attempt still did not finish.
		res.ExitCode = 1
	}
	return res
}

// LookPath reports whether name resolves to an executable on PATH.
func (r *ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	env = append(env, base...)
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// lockedBuffer serializes writes from the stdout and stderr copiers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
