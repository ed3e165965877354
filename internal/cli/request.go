package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/animus-coder/visualedit/internal/edit"
)

// loadRequest builds a modification request from a JSON file ("-" for stdin) and/or
// the --request and --element flags. Flags are applied on top of the file.
func loadRequest(stdin io.Reader, input, request string, elements []string) (edit.ModificationRequest, error) {
	var req edit.ModificationRequest
	if input != "" {
		var (
			data []byte
			err  error
		)
		if input == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(input)
		}
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decode request %s: %w", input, err)
		}
	}
	if strings.TrimSpace(request) != "" {
		req.UserRequest = request
	}
	for _, raw := range elements {
		el, err := parseElement(raw)
		if err != nil {
			return req, err
		}
		req.SelectedElements = append(req.SelectedElements, el)
	}
	return req, nil
}

// parseElement parses file:line[:component].
func parseElement(raw string) (edit.ElementInfo, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return edit.ElementInfo{}, fmt.Errorf("element %q: want file:line[:component]", raw)
	}
	line, err := strconv.Atoi(parts[1])
	if err != nil || line <= 0 {
		return edit.ElementInfo{}, fmt.Errorf("element %q: line must be a positive integer", raw)
	}
	el := edit.ElementInfo{File: parts[0], Line: line, Classes: "none"}
	if len(parts) == 3 {
		el.Component = parts[2]
	}
	return el, nil
}
