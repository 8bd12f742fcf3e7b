package actuator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const defaultDebugPort = 9222

// ChromeProcess is a locally launched Chrome with a remote debugging port.
// The session that launched it terminates it on close.
type ChromeProcess struct {
	cmd      *exec.Cmd
	port     int
	waitDone chan struct{}
}

// LaunchChrome starts Chrome at path with remote debugging enabled, a
// dedicated automation profile, and a blank start page. The caller owns the
// returned process and must call Terminate.
func LaunchChrome(ctx context.Context, path string) (*ChromeProcess, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: chrome path required", ErrLaunchFailed)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve home dir: %v", ErrLaunchFailed, err)
	}
	userDataDir := filepath.Join(home, ".chrome-automation-data")
	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create user data dir: %v", ErrLaunchFailed, err)
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", defaultDebugPort),
		"--no-first-run",
		"--no-default-browser-check",
		"--user-data-dir=" + userDataDir,
		"about:blank",
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start chrome: %v", ErrLaunchFailed, err)
	}

	waitDone := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(waitDone)
	}()

	return &ChromeProcess{
		cmd:      cmd,
		port:     defaultDebugPort,
		waitDone: waitDone,
	}, nil
}

// DebuggerURL returns the CDP endpoint the agent should attach to.
func (c *ChromeProcess) DebuggerURL() string {
	return fmt.Sprintf("http://localhost:%d", c.port)
}

// Terminate stops the Chrome process, escalating to a kill if it does not
// exit within the grace period.
func (c *ChromeProcess) Terminate() error {
	if c == nil || c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	select {
	case <-c.waitDone:
		return nil
	default:
	}

	if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
		return c.cmd.Process.Kill()
	}

	select {
	case <-c.waitDone:
		return nil
	case <-time.After(3 * time.Second):
		return c.cmd.Process.Kill()
	}
}
