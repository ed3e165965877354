// Package mock provides a scripted agentexec.Spawner for tests.
package mock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/animus-coder/visualedit/internal/agentexec"
)

// Step is one scripted action of a fake process: output to write, a signal to emit, or both.
type Step struct {
	Stdout string
	Stderr string
	Signal *agentexec.Signal
}

// Stdout writes s to the process output stream.
func Stdout(s string) Step { return Step{Stdout: s} }

// Stderr writes s to the process diagnostic stream.
func Stderr(s string) Step { return Step{Stderr: s} }

// Exit emits an exit signal with code.
func Exit(code int) Step {
	return Step{Signal: &agentexec.Signal{Kind: agentexec.SignalExit, Code: code}}
}

// Killed emits an exit signal for a process terminated by sig.
func Killed(sig string) Step {
	return Step{Signal: &agentexec.Signal{Kind: agentexec.SignalExit, Code: -1, Killed: sig}}
}

// Close emits a close signal with code.
func Close(code int) Step {
	return Step{Signal: &agentexec.Signal{Kind: agentexec.SignalClose, Code: code}}
}

// Error emits a process-level error signal.
func Error(msg string) Step {
	return Step{Signal: &agentexec.Signal{Kind: agentexec.SignalError, Err: errors.New(msg), Code: -1}}
}

// Success scripts a well-behaved run printing stdout and exiting 0.
func Success(stdout string) []Step {
	return []Step{Stdout(stdout), Exit(0), Close(0)}
}

// Spawner replays Script for every spawned process. When SpawnErr is set no process
// is started and the error is returned instead.
type Spawner struct {
	Script   []Step
	SpawnErr error

	mu       sync.Mutex
	commands []agentexec.Command
	stdin    []*stdinRecorder
}

// Spawn records cmd and starts a fake process that waits for stdin to close, then
// plays the script.
func (s *Spawner) Spawn(ctx context.Context, cmd agentexec.Command) (agentexec.Process, error) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	if s.SpawnErr != nil {
		return nil, s.SpawnErr
	}

	in := &stdinRecorder{closed: make(chan struct{})}
	s.mu.Lock()
	s.stdin = append(s.stdin, in)
	s.mu.Unlock()

	p := &process{stdin: in, signals: make(chan agentexec.Signal)}
	go p.play(ctx, cmd, s.Script)
	return p, nil
}

// Spawns returns how many spawn attempts were made.
func (s *Spawner) Spawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

// Commands returns the spawned commands.
func (s *Spawner) Commands() []agentexec.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agentexec.Command(nil), s.commands...)
}

// Stdin returns what the i-th process received on stdin, once it was closed.
func (s *Spawner) Stdin(i int) string {
	s.mu.Lock()
	in := s.stdin[i]
	s.mu.Unlock()
	<-in.closed
	return in.String()
}

type process struct {
	stdin   *stdinRecorder
	signals chan agentexec.Signal
}

func (p *process) Pid() int { return 4242 }

func (p *process) Stdin() io.WriteCloser { return p.stdin }

func (p *process) Signals() <-chan agentexec.Signal { return p.signals }

func (p *process) play(ctx context.Context, cmd agentexec.Command, script []Step) {
	defer close(p.signals)

	select {
	case <-p.stdin.closed:
	case <-ctx.Done():
		p.signals <- agentexec.Signal{Kind: agentexec.SignalExit, Code: -1, Killed: "killed"}
		return
	}

	for _, step := range script {
		if step.Stdout != "" && cmd.Stdout != nil {
			_, _ = io.WriteString(cmd.Stdout, step.Stdout)
		}
		if step.Stderr != "" && cmd.Stderr != nil {
			_, _ = io.WriteString(cmd.Stderr, step.Stderr)
		}
		if step.Signal != nil {
			p.signals <- *step.Signal
		}
	}
}

type stdinRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	once   sync.Once
	closed chan struct{}
}

func (r *stdinRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *stdinRecorder) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *stdinRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}
