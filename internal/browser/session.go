// Package browser drives a Chromium page over the DevTools protocol and exposes it to
// the overlay and toolbar: page queries, user events, panel rendering and notifications.
package browser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/overlay"
	"github.com/animus-coder/visualedit/internal/toolbar"
)

//go:embed bridge.js
var bridgeJS string

const (
	bindingName  = "__visualeditEmit"
	eventBufSize = 64
)

// ErrNotConnected is returned by page operations after Close.
var ErrNotConnected = errors.New("browser session not connected")

// Session is one controlled page. It implements overlay.Document, overlay.Source,
// toolbar.Renderer and toolbar.Notifier.
type Session struct {
	logger *zap.Logger

	mu       sync.RWMutex
	browser  *rod.Browser
	page     *rod.Page
	launched *launcher.Launcher
	cancel   context.CancelFunc
	last     *frame

	events chan overlay.Event
	done   chan struct{}
}

var (
	_ overlay.Document = (*Session)(nil)
	_ overlay.Source   = (*Session)(nil)
	_ toolbar.Renderer = (*Session)(nil)
	_ toolbar.Notifier = (*Session)(nil)
)

// Open connects to (or launches) a browser, opens cfg.URL and installs the page bridge.
// The session lives until ctx is cancelled, the page goes away or Close is called.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("browser.url must be set")
	}

	s := &Session{
		logger: logger,
		events: make(chan overlay.Event, eventBufSize),
		done:   make(chan struct{}),
	}

	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		s.launched = l
		controlURL = u
		logger.Info("browser launched", zap.String("control_url", controlURL), zap.Bool("headless", cfg.Headless))
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	b := rod.New().ControlURL(controlURL).Context(runCtx)
	if err := b.Connect(); err != nil {
		s.teardown()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := s.install(runCtx, cfg.URL); err != nil {
		s.teardown()
		return nil, err
	}
	logger.Info("page opened", zap.String("url", cfg.URL))
	return s, nil
}

// install registers the event binding, the bridge script and navigates to url.
func (s *Session) install(ctx context.Context, url string) error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(s.page); err != nil {
		return fmt.Errorf("add binding: %w", err)
	}
	if _, err := s.page.EvalOnNewDocument(bridgeJS); err != nil {
		return fmt.Errorf("install bridge: %w", err)
	}

	wait := s.page.Context(ctx).EachEvent(
		func(ev *proto.RuntimeBindingCalled) {
			if ev.Name != bindingName {
				return
			}
			s.dispatch(ctx, ev.Payload)
		},
		func(ev *proto.InspectorDetached) bool {
			s.logger.Info("page detached", zap.String("reason", ev.Reason))
			return true
		},
	)
	go func() {
		wait()
		close(s.events)
		close(s.done)
	}()

	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := s.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", url, err)
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, payload string) {
	ev, ready, err := decodeEvent(payload)
	if err != nil {
		s.logger.Debug("dropping bridge event", zap.Error(err))
		return
	}
	if ready {
		// Evaluate must not run on the event goroutine.
		go s.replay(ctx)
		return
	}
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Events streams user interaction from the page. The channel closes when the session ends.
func (s *Session) Events() <-chan overlay.Event {
	return s.events
}

// Done is closed once the event stream has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close detaches from the page and stops a browser this session launched.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardownLocked()
}

func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.teardownLocked(); err != nil {
		s.logger.Debug("browser teardown", zap.Error(err))
	}
}

func (s *Session) teardownLocked() error {
	var err error
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.launched != nil {
		if s.browser != nil {
			err = s.browser.Close()
		}
		s.launched.Kill()
		s.launched = nil
	}
	s.browser = nil
	s.page = nil
	return err
}

// call invokes a bridge method and decodes its return value into out.
func (s *Session) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()
	if page == nil {
		return ErrNotConnected
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		ByValue: true,
		JS:      fmt.Sprintf(`(...args) => window.__visualedit ? window.__visualedit.%s(...args) : null`, method),
		JSArgs:  args,
	})
	if err != nil {
		return fmt.Errorf("bridge %s: %w", method, err)
	}
	if out == nil || res == nil {
		return nil
	}
	if err := res.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("decode bridge %s result: %w", method, err)
	}
	return nil
}
