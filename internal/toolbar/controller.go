package toolbar

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/overlay"
)

var (
	// ErrBusy is returned when an apply is requested while another one is in flight.
	ErrBusy = errors.New("apply already in progress")
	// ErrNothingToApply is returned when the selection or the request text is empty.
	ErrNothingToApply = errors.New("nothing to apply")
)

const (
	msgNothingToApply = "Please select elements and enter a request"
	msgApplied        = "Changes applied successfully"
	msgExecFailed     = "Failed to execute - check the logs for details"
)

// Applier runs a modification request through the agent pipeline. A returned error is
// a transport or setup problem; agent failures come back as agentexec.Failure.
type Applier interface {
	Apply(ctx context.Context, req edit.ModificationRequest) (agentexec.Result, error)
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, req edit.ModificationRequest) (agentexec.Result, error)

// Apply calls f.
func (f ApplierFunc) Apply(ctx context.Context, req edit.ModificationRequest) (agentexec.Result, error) {
	return f(ctx, req)
}

// Renderer draws views.
type Renderer interface {
	Render(ctx context.Context, v View) error
}

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level   Level
	Message string
}

// Notifier shows notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Metrics receives apply attempt outcomes: rejected, busy, success, failure, error.
type Metrics interface {
	RecordApply(outcome string)
}

// Controller owns the toolbar state. All state changes happen on the goroutine
// running Run; applies run concurrently and post their outcome back to it.
type Controller struct {
	Document overlay.Document
	Applier  Applier
	Renderer Renderer
	Notifier Notifier
	Options  Options
	Metrics  Metrics
	Logger   *zap.Logger

	OnSelectionChanged func([]overlay.Entry)
	OnApplied          func(agentexec.Result)

	state     State
	annotated int
	last      *View
	outcomes  chan applyOutcome
}

type applyOutcome struct {
	result agentexec.Result
	err    error
}

// New builds a controller. Document, Applier and Renderer are required.
func New(doc overlay.Document, applier Applier, renderer Renderer, notifier Notifier, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Attribute == "" {
		opts.Attribute = overlay.DefaultAttribute
	}
	return &Controller{
		Document: doc,
		Applier:  applier,
		Renderer: renderer,
		Notifier: notifier,
		Options:  opts,
		Logger:   logger,
	}
}

// Run handles events from src until it is exhausted or ctx is done. Each event is
// handled to completion, followed by a render.
func (c *Controller) Run(ctx context.Context, src overlay.Source) error {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	c.outcomes = make(chan applyOutcome, 1)

	c.refreshCount(ctx)
	if c.Options.AutoActivate {
		c.state.Overlay = c.state.Overlay.Activate()
	}
	c.render(ctx)

	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.Logger.Info("event source closed")
				c.drain(ctx)
				return nil
			}
			c.handle(ctx, ev)
		case out := <-c.outcomes:
			c.finishApply(ctx, out)
		}
		c.render(ctx)
	}
}

// drain waits for an in-flight apply so its outcome is not lost.
func (c *Controller) drain(ctx context.Context) {
	if !c.state.Busy {
		return
	}
	select {
	case out := <-c.outcomes:
		c.finishApply(ctx, out)
		c.render(ctx)
	case <-ctx.Done():
	}
}

// State returns a copy of the current state. It is only safe to call from the Run
// goroutine or after Run returned.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) handle(ctx context.Context, ev overlay.Event) {
	before := c.state.Overlay.Selected

	switch e := ev.(type) {
	case overlay.PointerMoved:
		c.hover(ctx, e.X, e.Y)
	case overlay.Clicked:
		c.state.Overlay, _ = c.state.Overlay.Click(e.InControls)
	case overlay.KeyPressed:
		c.state.Overlay = c.state.Overlay.Key(e.Key)
	case overlay.ViewportChanged:
		c.state.Overlay = overlay.RelayoutWith(ctx, c.state.Overlay, c.Document, c.Logger)
		c.refreshCount(ctx)
	case overlay.ToggleActivation:
		c.state.Overlay = c.state.Overlay.Toggle()
	case overlay.ToggleExpanded:
		c.state = c.state.ToggleExpanded()
	case overlay.ClearAll:
		c.state = c.state.ClearAll()
	case overlay.RemoveSelected:
		c.state.Overlay = c.state.Overlay.Remove(e.Index)
	case overlay.RequestEdited:
		c.state = c.state.WithRequest(e.Text)
	case overlay.ApplyClicked:
		if err := c.startApply(ctx); err != nil {
			c.Logger.Debug("apply not started", zap.Error(err))
		}
	default:
		c.Logger.Debug("ignoring unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
	}

	if !overlay.SameSelection(before, c.state.Overlay.Selected) {
		c.selectionChanged()
	}
}

func (c *Controller) hover(ctx context.Context, x, y float64) {
	if !c.state.Overlay.Active {
		c.state.Overlay = c.state.Overlay.Hover(nil)
		return
	}
	entry, err := overlay.HitTest(ctx, c.Document, c.Options.Attribute, x, y, c.Logger)
	if err != nil {
		c.Logger.Debug("hit test failed", zap.Error(err))
		entry = nil
	}
	c.state.Overlay = c.state.Overlay.Hover(entry)
}

// startApply validates the state and launches the apply goroutine.
func (c *Controller) startApply(ctx context.Context) error {
	if c.state.Busy {
		c.Logger.Warn("apply already in progress, ignoring")
		c.recordApply("busy")
		return ErrBusy
	}
	if len(c.state.Overlay.Selected) == 0 || strings.TrimSpace(c.state.Request) == "" {
		c.notify(ctx, LevelInfo, msgNothingToApply)
		c.recordApply("rejected")
		return ErrNothingToApply
	}

	c.state.Overlay = overlay.RelayoutWith(ctx, c.state.Overlay, c.Document, c.Logger)
	req := c.state.BuildRequest()
	c.state.Busy = true
	c.render(ctx)

	c.Logger.Info("applying modification request",
		zap.Int("selected_elements", len(req.SelectedElements)),
		zap.Strings("files", req.Files()),
	)
	go c.runApply(ctx, req)
	return nil
}

func (c *Controller) runApply(ctx context.Context, req edit.ModificationRequest) {
	var out applyOutcome
	defer func() {
		if r := recover(); r != nil {
			out = applyOutcome{err: fmt.Errorf("apply panicked: %v", r)}
		}
		select {
		case c.outcomes <- out:
		case <-ctx.Done():
		}
	}()
	if c.Applier == nil {
		out.err = errors.New("no applier configured")
		return
	}
	res, err := c.Applier.Apply(ctx, req)
	out = applyOutcome{result: res, err: err}
}

// finishApply turns an apply outcome into a notification and releases Busy.
func (c *Controller) finishApply(ctx context.Context, out applyOutcome) {
	defer func() { c.state.Busy = false }()

	if out.err != nil || out.result == nil {
		err := out.err
		if err == nil {
			err = errors.New("applier returned no result")
		}
		c.Logger.Error("apply failed", zap.Error(err))
		c.recordApply("error")
		c.notify(ctx, LevelError, msgExecFailed)
		return
	}

	switch r := out.result.(type) {
	case agentexec.Success:
		c.Logger.Info("changes applied",
			zap.String("session_id", r.SessionID),
			zap.Int("output_bytes", len(r.Output)),
		)
		c.recordApply("success")
		c.notify(ctx, LevelSuccess, successMessage(r))
		if c.OnApplied != nil {
			c.OnApplied(r)
		}
		before := c.state.Overlay.Selected
		c.state = c.state.ClearAll()
		if len(before) > 0 {
			c.selectionChanged()
		}
	case agentexec.Failure:
		c.Logger.Warn("agent reported failure", zap.String("reason", r.Reason), zap.Int("output_bytes", len(r.Output)))
		c.recordApply("failure")
		reason := r.Reason
		if strings.TrimSpace(reason) == "" {
			reason = "Unknown error"
		}
		c.notify(ctx, LevelError, "Failed to apply changes: "+reason)
	}
}

func successMessage(r agentexec.Success) string {
	msg := msgApplied
	if r.CostUSD != nil && *r.CostUSD != 0 {
		msg += fmt.Sprintf(" (Cost: $%.4f)", *r.CostUSD)
	}
	if r.DurationMs != nil && *r.DurationMs != 0 {
		msg += fmt.Sprintf(" (Duration: %dms)", *r.DurationMs)
	}
	return msg
}

func (c *Controller) selectionChanged() {
	if c.OnSelectionChanged == nil {
		return
	}
	c.OnSelectionChanged(append([]overlay.Entry(nil), c.state.Overlay.Selected...))
}

func (c *Controller) notify(ctx context.Context, level Level, msg string) {
	if c.Notifier == nil {
		c.Logger.Info("notification", zap.String("level", string(level)), zap.String("message", msg))
		return
	}
	if err := c.Notifier.Notify(ctx, Notification{Level: level, Message: msg}); err != nil {
		c.Logger.Warn("notification failed", zap.Error(err))
	}
}

func (c *Controller) refreshCount(ctx context.Context) {
	if c.Document == nil {
		return
	}
	n, err := c.Document.CountAnnotated(ctx, c.Options.Attribute)
	if err != nil {
		c.Logger.Debug("counting annotated elements failed", zap.Error(err))
		return
	}
	c.annotated = n
}

// render projects the current state and hands it to the renderer unless it matches
// the last rendered view.
func (c *Controller) render(ctx context.Context) {
	if c.Renderer == nil {
		return
	}
	v := Project(c.state, c.Options, c.annotated)
	if c.last != nil && reflect.DeepEqual(*c.last, v) {
		return
	}
	if err := c.Renderer.Render(ctx, v); err != nil {
		c.Logger.Warn("render failed", zap.Error(err))
		return
	}
	c.last = &v
}

func (c *Controller) recordApply(outcome string) {
	if c.Metrics != nil {
		c.Metrics.RecordApply(outcome)
	}
}
