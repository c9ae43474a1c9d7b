// Package exec runs System commands for the runtime: batch execution with
// full output capture, and streaming execution with line-by-line delivery.
package exec

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	osexec "os/exec"
)

// DefaultShell interprets command lines when no other shell is configured.
const DefaultShell = "sh"

// Result is the outcome of a batch command that started successfully.
type Result struct {
	Stdout string
	Stderr string
	Status int
}

// Handlers receive the output of a streaming command. Stdout and Stderr are
// called once per line, in emission order within each stream, with the
// trailing newline retained. Complete is called exactly once, after both
// streams are exhausted. Handlers are invoked from the goroutine that
// called Stream.
type Handlers struct {
	Stdout   func(line string)
	Stderr   func(line string)
	Complete func(status int)
}

// Run executes command with shell -c and collects full stdout, stderr, and
// the exit status. The error is non-nil only when the process could not be
// started; a non-zero exit is reported through Result.Status.
func Run(shell, command string) (Result, error) {
	if shell == "" {
		shell = DefaultShell
	}
	cmd := osexec.Command(shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	status, err := waitStatus(cmd.Run())
	if err != nil {
		return Result{}, err
	}
	return Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Status: status,
	}, nil
}

// Stream executes command with shell -c, delivering output through h as it
// arrives. The error is non-nil only when the process could not be started;
// in that case no handler has been called. Otherwise h.Complete fires
// exactly once with the exit status.
func Stream(shell, command string, h Handlers) error {
	if shell == "" {
		shell = DefaultShell
	}
	cmd := osexec.Command(shell, "-c", command)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	// Lines are read on separate goroutines so a full pipe on one stream
	// cannot stall the other, then handed back here in channel order to
	// keep per-stream emission order intact.
	stdoutLines := readLines(stdoutPipe)
	stderrLines := readLines(stderrPipe)
	for stdoutLines != nil || stderrLines != nil {
		select {
		case line, ok := <-stdoutLines:
			if !ok {
				stdoutLines = nil
				continue
			}
			if h.Stdout != nil {
				h.Stdout(line)
			}
		case line, ok := <-stderrLines:
			if !ok {
				stderrLines = nil
				continue
			}
			if h.Stderr != nil {
				h.Stderr(line)
			}
		}
	}

	status, err := waitStatus(cmd.Wait())
	if err != nil {
		status = -1
	}
	if h.Complete != nil {
		h.Complete(status)
	}
	return nil
}

// readLines reads r line by line, retaining trailing newlines. The channel
// closes when r is exhausted. A final unterminated line is delivered as-is.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				out <- line
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// waitStatus extracts the exit status from cmd.Run/Wait. A nil error is
// status 0; an ExitError carries the real status; anything else is a start
// failure.
func waitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
