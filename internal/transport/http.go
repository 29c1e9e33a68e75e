package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"am-client/internal/docstore"
)

const defaultAttemptTimeout = 30 * time.Second

// HTTPTransport talks to the backend over its JSON/SSE API.
type HTTPTransport struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	attemptTimeout time.Duration
	log            *slog.Logger
}

// NewHTTP builds a transport against baseURL. attemptTimeout bounds every
// single network attempt; zero picks the default.
func NewHTTP(baseURL, apiKey string, attemptTimeout time.Duration, log *slog.Logger) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	return &HTTPTransport{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		client:         &http.Client{},
		attemptTimeout: attemptTimeout,
		log:            log,
	}, nil
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Context   string `json:"context,omitempty"`
}

func (t *HTTPTransport) Chat(ctx context.Context, message string, opts ChatOptions) (ChatResponse, error) {
	var resp ChatResponse
	err := t.doJSON(ctx, http.MethodPost, "/v1/chat", chatRequest{
		Message:   message,
		SessionID: opts.SessionID,
		Context:   opts.Context,
	}, &resp)
	return resp, err
}

func (t *HTTPTransport) GetGeneralDocs(ctx context.Context, since *time.Time) ([]docstore.ReferenceDocument, error) {
	path := "/v1/docs"
	if since != nil {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}
	var docs []docstore.ReferenceDocument
	if err := t.doJSON(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (t *HTTPTransport) GetStatus(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := t.doJSON(ctx, http.MethodGet, "/v1/status", nil, &resp)
	return resp, err
}

// ChatStream reads the server-sent event stream and dispatches events to
// h. It blocks until the stream completes or fails; failures are delivered
// through h.OnError only.
func (t *HTTPTransport) ChatStream(ctx context.Context, message string, opts ChatOptions, h StreamHandlers) {
	body, err := json.Marshal(chatRequest{
		Message:   message,
		SessionID: opts.SessionID,
		Context:   opts.Context,
	})
	if err != nil {
		t.emitError(h, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/chat/stream", bytes.NewReader(body))
	if err != nil {
		t.emitError(h, err)
		return
	}
	t.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		t.emitError(h, &APIError{Kind: KindNetwork, Message: err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		t.emitError(h, apiErrorFromStatus(resp.StatusCode, string(msg), resp.Header.Get("Retry-After")))
		return
	}

	t.readEvents(resp.Body, h)
}

// readEvents parses the event/data line pairs of an SSE body.
func (t *HTTPTransport) readEvents(body io.Reader, h StreamHandlers) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data strings.Builder
	dispatch := func() {
		if event == "" && data.Len() == 0 {
			return
		}
		t.dispatchEvent(event, data.String(), h)
		event = ""
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	dispatch()

	if err := scanner.Err(); err != nil {
		t.emitError(h, &APIError{Kind: KindNetwork, Message: err.Error()})
	}
}

func (t *HTTPTransport) dispatchEvent(event, data string, h StreamHandlers) {
	switch event {
	case "token":
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err == nil && h.OnToken != nil {
			h.OnToken(payload.Token)
		}
	case "sources":
		var sources []ChatSource
		if err := json.Unmarshal([]byte(data), &sources); err == nil && h.OnSources != nil {
			h.OnSources(sources)
		}
	case "done":
		var resp ChatResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			t.emitError(h, &APIError{Kind: KindNetwork, Message: "malformed completion event: " + err.Error()})
			return
		}
		if h.OnComplete != nil {
			h.OnComplete(resp)
		}
	case "error":
		var payload struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			t.emitError(h, &APIError{Kind: KindNetwork, Message: data})
			return
		}
		t.emitError(h, apiErrorFromStatus(payload.Status, payload.Message, ""))
	default:
		t.log.Debug("ignoring unknown stream event", "event", event)
	}
}

func (t *HTTPTransport) emitError(h StreamHandlers, err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (t *HTTPTransport) doJSON(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, t.attemptTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return err
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apiErrorFromStatus(resp.StatusCode, string(msg), resp.Header.Get("Retry-After"))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindNetwork, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func (t *HTTPTransport) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}
