package agentexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// SignalKind names a process lifecycle event.
type SignalKind int

const (
	// SignalError reports a process-level failure such as a failed wait.
	SignalError SignalKind = iota
	// SignalExit reports that the process exited; output streams may still be open.
	SignalExit
	// SignalClose reports that the process exited and its output streams are drained.
	SignalClose
)

func (k SignalKind) String() string {
	switch k {
	case SignalError:
		return "error"
	case SignalExit:
		return "exit"
	case SignalClose:
		return "close"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// Signal is one lifecycle event. Code is the exit code (-1 when unknown); Killed names
// the signal that terminated the process, if any.
type Signal struct {
	Kind   SignalKind
	Err    error
	Code   int
	Killed string
}

// Command describes the process to spawn. Stdout and Stderr receive the process output.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a spawned child. Signals is closed after the last lifecycle event; a
// SignalClose is only sent once everything the process printed has been written to
// the Command's Stdout and Stderr.
type Process interface {
	Pid() int
	Stdin() io.WriteCloser
	Signals() <-chan Signal
}

// Spawner starts processes. A returned error is a process-level error (e.g. the
// executable does not exist).
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

// DefaultWaitDelay bounds how long a killed process may keep its output pipes open
// through descendants before they are closed forcibly.
const DefaultWaitDelay = 2 * time.Second

// ExecSpawner spawns real processes with os/exec. The child inherits the parent
// environment plus Command.Env.
type ExecSpawner struct {
	WaitDelay time.Duration // 0 uses DefaultWaitDelay
}

// Spawn starts cmd. Cancelling ctx kills the process.
func (sp ExecSpawner) Spawn(ctx context.Context, c Command) (Process, error) {
	if c.Name == "" {
		return nil, errors.New("command is required")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = orDiscard(c.Stdout)
	cmd.Stderr = orDiscard(c.Stderr)
	cmd.WaitDelay = sp.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, stdin: stdin, signals: make(chan Signal, 3)}
	go p.wait()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	signals chan Signal
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }

func (p *execProcess) Signals() <-chan Signal { return p.signals }

// wait translates cmd.Wait into lifecycle signals. Wait returns only after the copy
// goroutines for Stdout and Stderr finished, so the close signal follows drained output.
func (p *execProcess) wait() {
	defer close(p.signals)

	err := p.cmd.Wait()
	state := p.cmd.ProcessState
	if state == nil {
		p.signals <- Signal{Kind: SignalError, Err: err, Code: -1}
		return
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		p.signals <- Signal{Kind: SignalExit, Code: -1, Killed: ws.Signal().String()}
		p.signals <- Signal{Kind: SignalClose, Code: -1, Killed: ws.Signal().String()}
		return
	}

	code := state.ExitCode()
	p.signals <- Signal{Kind: SignalExit, Code: code}
	p.signals <- Signal{Kind: SignalClose, Code: code}
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
