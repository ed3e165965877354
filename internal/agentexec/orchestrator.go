// Package agentexec runs the external coding agent: it spawns the process, feeds it the
// prompt on stdin, collects its output and resolves exactly one Result per invocation.
package agentexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/config"
)

// ErrEmptyPrompt is the failure reason for blank prompts; no process is spawned.
var ErrEmptyPrompt = errors.New("empty prompt provided")

// Metrics receives one observation per invocation.
type Metrics interface {
	RecordAgentRun(outcome string, duration time.Duration, costUSD *float64)
}

// Orchestrator invokes the agent process.
type Orchestrator struct {
	Spawner        Spawner
	Command        string
	Args           []string
	Dir            string
	Timeout        time.Duration
	MaxOutputBytes int
	Metrics        Metrics
	Logger         *zap.Logger
}

// New builds an orchestrator from the agent section of the configuration.
func New(cfg config.AgentConfig, spawner Spawner, logger *zap.Logger) *Orchestrator {
	if spawner == nil {
		spawner = ExecSpawner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		Spawner:        spawner,
		Command:        cfg.Command,
		Args:           append([]string(nil), cfg.Args...),
		Dir:            cfg.WorkingDir,
		Timeout:        cfg.Timeout,
		MaxOutputBytes: cfg.MaxOutputBytes,
		Logger:         logger,
	}
}

// Invoke runs the agent with prompt and blocks until the first terminal signal.
// Every failure is reported as a Failure result, never as a Go error.
func (o *Orchestrator) Invoke(ctx context.Context, prompt string) Result {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Failure{Reason: ErrEmptyPrompt.Error()}
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	start := time.Now()
	inv := &invocation{
		stdout: newCappedBuffer(o.MaxOutputBytes),
		stderr: newCappedBuffer(o.MaxOutputBytes),
		cell:   newResultCell(),
		logger: logger,
	}

	proc, err := o.Spawner.Spawn(ctx, Command{
		Name:   o.Command,
		Args:   o.Args,
		Dir:    o.Dir,
		Stdout: inv.stdout,
		Stderr: inv.stderr,
	})
	if err != nil {
		logger.Warn("agent spawn failed", zap.String("command", o.Command), zap.Error(err))
		inv.cell.resolve(Failure{Reason: err.Error()})
	} else {
		logger.Info("agent process spawned",
			zap.String("command", o.Command),
			zap.Int("pid", proc.Pid()),
			zap.Int("prompt_bytes", len(prompt)),
		)
		if stdin := proc.Stdin(); stdin != nil {
			go writePrompt(stdin, prompt, logger)
		} else {
			inv.cell.resolve(Failure{Reason: "failed to get stdin handle"})
		}
		go inv.consume(proc.Signals())
	}

	result := inv.cell.wait()
	o.observe(result, time.Since(start), inv)
	return result
}

func (o *Orchestrator) observe(result Result, elapsed time.Duration, inv *invocation) {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if dropped := inv.stdout.Dropped() + inv.stderr.Dropped(); dropped > 0 {
		logger.Warn("agent output exceeded buffer cap", zap.Int("dropped_bytes", dropped), zap.Int("cap_bytes", o.MaxOutputBytes))
	}

	outcome := "failure"
	var cost *float64
	switch r := result.(type) {
	case Success:
		outcome = "success"
		cost = r.CostUSD
		logger.Info("agent run succeeded",
			zap.Duration("elapsed", elapsed),
			zap.String("session_id", r.SessionID),
			zap.Int("output_bytes", len(r.Output)),
		)
	case Failure:
		logger.Warn("agent run failed", zap.Duration("elapsed", elapsed), zap.String("reason", r.Reason))
	}
	if o.Metrics != nil {
		o.Metrics.RecordAgentRun(outcome, elapsed, cost)
	}
}

// invocation owns the buffers and result cell of one Invoke call.
type invocation struct {
	stdout *cappedBuffer
	stderr *cappedBuffer
	cell   *resultCell
	logger *zap.Logger
}

// consume reads lifecycle signals until the channel closes. The first terminal
// signal resolves the cell; the rest are logged and dropped.
func (inv *invocation) consume(signals <-chan Signal) {
	for sig := range signals {
		result, terminal := inv.interpret(sig)
		if !terminal {
			inv.logger.Debug("agent lifecycle signal", zap.Stringer("kind", sig.Kind), zap.Int("code", sig.Code))
			continue
		}
		if !inv.cell.resolve(result) {
			inv.logger.Debug("ignoring signal after resolution", zap.Stringer("kind", sig.Kind))
		}
	}
	inv.cell.resolve(Failure{Output: inv.stdout.String(), Reason: "process ended without reporting an exit status"})
}

// interpret maps a signal to a result. It reports false for signals that do not end
// the invocation on their own.
func (inv *invocation) interpret(sig Signal) (Result, bool) {
	switch sig.Kind {
	case SignalError:
		reason := "process error"
		if sig.Err != nil {
			reason = sig.Err.Error()
		}
		return Failure{Reason: reason}, true
	case SignalExit:
		if sig.Killed == "" {
			return nil, false
		}
		return Failure{Output: inv.stdout.String(), Reason: "process was terminated"}, true
	case SignalClose:
		raw := inv.stdout.String()
		if sig.Code == 0 && sig.Killed == "" {
			return parseSuccess(raw), true
		}
		if sig.Killed != "" {
			return Failure{Output: raw, Reason: "process was terminated"}, true
		}
		reason := strings.TrimSpace(inv.stderr.String())
		if reason == "" {
			reason = fmt.Sprintf("process exited with code %d", sig.Code)
		}
		return Failure{Output: raw, Reason: reason}, true
	default:
		return nil, false
	}
}

func writePrompt(stdin io.WriteCloser, prompt string, logger *zap.Logger) {
	if _, err := io.WriteString(stdin, prompt); err != nil {
		logger.Warn("writing prompt to agent stdin failed", zap.Error(err))
	}
	if err := stdin.Close(); err != nil {
		logger.Debug("closing agent stdin", zap.Error(err))
	}
}
