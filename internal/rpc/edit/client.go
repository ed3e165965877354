package edit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bufbuild/connect-go"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/rpc"
	"github.com/animus-coder/visualedit/internal/rpc/connectjson"
)

// Client talks to a running daemon. It implements toolbar.Applier so a browser session
// can delegate applies to the daemon.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Transport  string // connect or ndjson
	SessionID  string
	// OnEvent, when set, sees every streamed event before it is interpreted.
	OnEvent func(rpc.EditEvent)
}

// Apply sends req and waits for the result event.
func (c *Client) Apply(ctx context.Context, req edit.ModificationRequest) (agentexec.Result, error) {
	msg := rpc.EditRequest{SessionID: c.SessionID, Request: req}

	var (
		result agentexec.Result
		errMsg string
	)
	handle := func(ev rpc.EditEvent) {
		if c.OnEvent != nil {
			c.OnEvent(ev)
		}
		switch ev.Type {
		case rpc.EventResult:
			if ev.Result != nil {
				result = ev.Result.Result()
			}
		case rpc.EventError:
			errMsg = ev.Error
		}
	}

	var err error
	if strings.EqualFold(strings.TrimSpace(c.Transport), "ndjson") {
		err = c.streamNDJSON(ctx, msg, handle)
	} else {
		err = c.streamConnect(ctx, msg, handle)
	}
	if err != nil {
		return nil, err
	}
	if errMsg != "" {
		return nil, fmt.Errorf("daemon: %s", errMsg)
	}
	if result == nil {
		return nil, errors.New("daemon closed the stream without a result")
	}
	return result, nil
}

// Analyze calls POST /edit/analyze.
func (c *Client) Analyze(ctx context.Context, req edit.ModificationRequest) (rpc.AnalyzeResponse, error) {
	var out rpc.AnalyzeResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	resp, err := c.post(ctx, AnalyzePath, body)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode analysis: %w", err)
	}
	return out, nil
}

func (c *Client) streamConnect(ctx context.Context, msg rpc.EditRequest, handle func(rpc.EditEvent)) error {
	client := connect.NewClient[rpc.EditRequest, rpc.EditEvent](
		c.httpClient(),
		strings.TrimRight(c.BaseURL, "/")+ConnectApplyProcedure,
		connect.WithCodec(connectjson.Codec{}),
	)
	stream, err := client.CallServerStream(ctx, connect.NewRequest(&msg))
	if err != nil {
		return fmt.Errorf("call apply: %w", err)
	}
	defer stream.Close()
	for stream.Receive() {
		handle(*stream.Msg())
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("apply stream: %w", err)
	}
	return nil
}

func (c *Client) streamNDJSON(ctx context.Context, msg rpc.EditRequest, handle func(rpc.EditEvent)) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, ApplyPath, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 32<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev rpc.EditEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		handle(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("post %s: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
