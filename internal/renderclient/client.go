// Package renderclient talks to one remote render server: it submits a
// bound workflow, tracks the job over the server's real-time event channel,
// and resolves the final output URLs from the history endpoint.
package renderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/workflow"
)

// State tracks a submitted job token. Executing is entered optimistically
// on submit; the server sends no separate ack. All terminal states are
// absorbing and the client never retries; retry policy belongs to the
// caller.
type State string

const (
	StateSubmitted State = "submitted"
	StateExecuting State = "executing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Progress is one progress report for a running job.
type Progress struct {
	Value      int     `json:"value"`
	Max        int     `json:"max"`
	Percentage float64 `json:"percentage"`
	NodeID     string  `json:"node_id"`
}

// ProgressFunc receives progress reports; may be nil.
type ProgressFunc func(Progress)

// Result is a completed render.
type Result struct {
	// Outputs are externally fetchable URLs, one per output reference, in
	// node iteration order.
	Outputs  []string
	Duration time.Duration
}

// Options configure a Client.
type Options struct {
	// WaitTimeout bounds AwaitCompletion independent of the channel
	// (default 5 minutes).
	WaitTimeout time.Duration
	HTTPClient  *http.Client
	Log         *logger.Logger
}

// Client talks to a single render server session. Safe for concurrent use;
// each AwaitCompletion opens its own event channel connection.
type Client struct {
	baseURL     string
	apiKey      string
	clientID    string
	waitTimeout time.Duration
	http        *http.Client
	log         *logger.Logger
}

// New creates a client for one server URL. The generated client id scopes
// the event channel to this client's session.
func New(serverURL, apiKey string, opts Options) *Client {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Client{
		baseURL:     strings.TrimRight(serverURL, "/"),
		apiKey:      apiKey,
		clientID:    uuid.NewString(),
		waitTimeout: opts.WaitTimeout,
		http:        opts.HTTPClient,
		log:         log.WithComponent("renderclient"),
	}
}

// submitResponse is the server's answer to a workflow submission.
type submitResponse struct {
	PromptID string `json:"prompt_id"`
	Error    *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	NodeErrors map[string]any `json:"node_errors"`
}

// Submit POSTs the workflow and returns the job token. A non-2xx response
// or an error field in the body is a submission failure.
func (c *Client) Submit(ctx context.Context, g workflow.Graph) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":    g,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmit, "renderclient.submit", "failed to encode workflow")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmit, "renderclient.submit", "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmit, "renderclient.submit", "submit request failed")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Submit(fmt.Sprintf("render server returned %d: %s", resp.StatusCode, truncate(string(respBody), 500)))
	}

	var sr submitResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmit, "renderclient.submit", "invalid submit response")
	}
	if sr.Error != nil {
		return "", errors.Submit(fmt.Sprintf("render server rejected workflow: %s", sr.Error.Message))
	}
	if sr.PromptID == "" {
		return "", errors.Submit("render server returned no job token")
	}

	c.log.Debug("workflow submitted", "prompt_id", sr.PromptID)
	return sr.PromptID, nil
}

// channelMessage is one real-time event from the server's channel.
type channelMessage struct {
	Type string `json:"type"`
	Data struct {
		PromptID         string `json:"prompt_id"`
		Node             string `json:"node"`
		Value            int    `json:"value"`
		Max              int    `json:"max"`
		ExceptionMessage string `json:"exception_message"`
	} `json:"data"`
}

// AwaitCompletion tracks the job token over the event channel until a
// terminal event, then resolves the output URLs from the history endpoint.
// Outcomes are mutually exclusive: success, execution error, channel
// failure, or overall wait timeout. Progress may repeat any number of
// times before any of them. Timeouts do not cancel the remote job.
func (c *Client) AwaitCompletion(ctx context.Context, promptID string, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	state := StateExecuting

	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	conn, err := c.dialChannel(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeChannel, "renderclient.await", "failed to open event channel")
	}
	defer conn.Close()

	msgs := make(chan channelMessage)
	readErr := make(chan error, 1)
	go c.readChannel(ctx, conn, msgs, readErr)

	for state == StateExecuting {
		select {
		case <-ctx.Done():
			return nil, errors.Timeout("render wait").WithField("prompt_id", promptID)

		case err := <-readErr:
			return nil, errors.WrapWithCode(err, errors.CodeChannel, "renderclient.await", "event channel closed before completion")

		case msg := <-msgs:
			if msg.Data.PromptID != promptID {
				continue
			}
			switch msg.Type {
			case "progress":
				if onProgress != nil {
					onProgress(Progress{
						Value:      msg.Data.Value,
						Max:        msg.Data.Max,
						Percentage: percentage(msg.Data.Value, msg.Data.Max),
						NodeID:     msg.Data.Node,
					})
				}

			case "executed":
				state = StateCompleted

			case "execution_error":
				return nil, errors.Execution(msg.Data.ExceptionMessage).WithField("prompt_id", promptID)
			}
		}
	}

	outputs, err := c.fetchOutputs(ctx, promptID)
	if err != nil {
		return nil, err
	}

	c.log.Debug("render completed",
		"prompt_id", promptID,
		"outputs", len(outputs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Outputs: outputs, Duration: time.Since(start)}, nil
}

// Run submits the workflow and waits for it to finish.
func (c *Client) Run(ctx context.Context, g workflow.Graph, onProgress ProgressFunc) (*Result, error) {
	promptID, err := c.Submit(ctx, g)
	if err != nil {
		return nil, err
	}
	return c.AwaitCompletion(ctx, promptID, onProgress)
}

// Download fetches artifact bytes from one of the output URLs.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// dialChannel opens the real-time event channel scoped to this client's
// session id.
func (c *Client) dialChannel(ctx context.Context) (*websocket.Conn, error) {
	wsURL := c.baseURL + "/ws?clientId=" + url.QueryEscape(c.clientID)
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	return conn, err
}

// readChannel pumps decoded text messages into msgs until the connection
// fails or ctx ends. Binary frames (preview images) are skipped.
func (c *Client) readChannel(ctx context.Context, conn *websocket.Conn, msgs chan<- channelMessage, readErr chan<- error) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg channelMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Unknown frames on the shared channel are not fatal.
			continue
		}

		select {
		case msgs <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// historyEntry is the per-job record from the history endpoint. Each node
// maps output categories (images, gifs, ...) to lists of output
// descriptors.
type historyEntry struct {
	Outputs map[string]map[string]json.RawMessage `json:"outputs"`
}

// outputRef locates one produced artifact on the server.
type outputRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// fetchOutputs queries the history endpoint for the job token and builds a
// fetchable URL for every output reference of every node.
func (c *Client) fetchOutputs(ctx context.Context, promptID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeExecution, "renderclient.history", "failed to build history request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeExecution, "renderclient.history", "history fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Execution(fmt.Sprintf("history endpoint returned %d", resp.StatusCode))
	}

	var history map[string]historyEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeExecution, "renderclient.history", "invalid history response")
	}

	entry, ok := history[promptID]
	if !ok {
		return nil, errors.Execution("job missing from history")
	}

	var outputs []string
	for _, nodeOutputs := range entry.Outputs {
		for _, raw := range nodeOutputs {
			var refs []outputRef
			if err := json.Unmarshal(raw, &refs); err != nil {
				// Non-list output fields are skipped.
				continue
			}
			for _, ref := range refs {
				if ref.Filename == "" {
					continue
				}
				outputs = append(outputs, c.viewURL(ref))
			}
		}
	}

	if len(outputs) == 0 {
		return nil, errors.Execution("render produced no outputs")
	}
	return outputs, nil
}

// viewURL builds the fetchable URL for an output reference.
func (c *Client) viewURL(ref outputRef) string {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	q.Set("type", ref.Type)
	return c.baseURL + "/view?" + q.Encode()
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func percentage(value, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(value) / float64(max) * 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
