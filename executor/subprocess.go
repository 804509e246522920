package executor

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// runSubprocess invokes command through the host OS shell on a
// pseudo-terminal, so interactive or curses-style subprocess bodies never
// block waiting on tty detection. It is cooperative: on ctx cancellation
// the process is signalled and runSubprocess returns once it exits, it is
// never force-killed ahead of that.
func runSubprocess(ctx context.Context, command string) error {
	cmd := exec.Command("bash", "-c", command)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	go func() {
		_, _ = io.Copy(io.Discard, f)
	}()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		return err
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
		}
		<-waitDone
		return ctx.Err()
	}
}
