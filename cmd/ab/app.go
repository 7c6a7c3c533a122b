package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://127.0.0.1:8787"

// app holds shared state for all client-side subcommands.
type app struct {
	baseURL string
	agentID string // default agent from AGENTBRIDGE_AGENT
	client  *http.Client
}

func newApp() *app {
	return &app{
		baseURL: envOr("AGENTBRIDGE_URL", defaultURL),
		agentID: envOr("AGENTBRIDGE_AGENT", ""),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// resolveAgent returns the agent ID from the flag (if non-empty),
// falling back to the AGENTBRIDGE_AGENT environment variable.
func (a *app) resolveAgent(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if a.agentID != "" {
		return a.agentID, nil
	}
	return "", fmt.Errorf("no agent ID: pass --agent or set AGENTBRIDGE_AGENT")
}

// apiError is the server's error envelope.
type apiError struct {
	Status int
	Code   string
	Msg    string
}

func (e *apiError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// call performs a JSON request against the bridge and decodes the
// response into out (when out is non-nil). Non-2xx responses come back
// as *apiError.
func (a *app) call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach bridge at %s: %w", a.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func decodeAPIError(status int, raw []byte) *apiError {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	return &apiError{Status: status, Code: body.Error.Code, Msg: body.Error.Message}
}

// isConflict reports whether err is the lock-contention rejection,
// which maps to exit code 2.
func isConflict(err error) bool {
	if apiErr, ok := err.(*apiError); ok {
		return apiErr.Status == http.StatusConflict
	}
	return false
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
