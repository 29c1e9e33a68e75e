package client

import (
	"context"
	"strings"

	"am-client/internal/transport"
)

// StreamCallbacks receive streaming answer events. OnComplete always fires
// exactly once; a degraded stream is indistinguishable from a completed
// one except through the Offline flag on the final Answer.
type StreamCallbacks struct {
	OnToken    func(token string)
	OnSources  func(sources []AnswerSource)
	OnComplete func(answer Answer)
}

// AskStream is the streaming variant of Ask. It blocks until the stream
// finishes or degrades, and never returns an error: live-path failures are
// converted into a fallback Answer delivered through OnComplete.
func (c *Client) AskStream(ctx context.Context, message string, opts AskOptions, cb StreamCallbacks) {
	complete := func(a Answer) {
		if cb.OnComplete != nil {
			cb.OnComplete(a)
		}
	}

	if strings.TrimSpace(message) == "" {
		complete(Answer{Reply: msgEmptyQuestion, Confidence: ConfidenceNone})
		return
	}

	settings := c.systemSettings(ctx, false)
	if settings.MaintenanceMode || settings.ForceOfflineClients {
		if !c.cacheValid(ctx, settings) {
			reply := settings.MaintenanceMessage
			if reply == "" {
				reply = msgMaintenance
			}
			complete(Answer{Reply: reply, Confidence: ConfidenceNone, Offline: true, DegradedReason: reasonMaintenance})
			return
		}
		complete(c.fallback(ctx, message, reasonMaintenance))
		return
	}

	copts := transport.ChatOptions{SessionID: c.sessionFor(opts), Context: opts.Context}
	c.transport.ChatStream(ctx, message, copts, transport.StreamHandlers{
		OnToken: func(token string) {
			if cb.OnToken != nil {
				cb.OnToken(token)
			}
		},
		OnSources: func(sources []transport.ChatSource) {
			if cb.OnSources == nil {
				return
			}
			converted := make([]AnswerSource, len(sources))
			for i, s := range sources {
				converted[i] = AnswerSource{Title: s.Title, Snippet: s.Snippet, Relevance: s.Relevance}
			}
			cb.OnSources(converted)
		},
		OnComplete: func(resp transport.ChatResponse) {
			c.setState(StateOnline)
			c.rememberSession(resp.SessionID)
			complete(liveAnswer(resp))
		},
		OnError: func(err error) {
			c.recordError(err)
			c.log.Warn("stream failed", "kind", transport.Classify(err), "err", err)

			if transport.Classify(err) == transport.KindRateLimit {
				complete(Answer{
					Reply:      msgRateLimited,
					Confidence: ConfidenceNone,
					RetryAfter: transport.RetryAfterSeconds(err),
				})
				return
			}
			if c.cfg.FallbackEnabled && !opts.SkipFallback {
				complete(c.fallback(ctx, message, string(transport.Classify(err))))
				return
			}
			complete(Answer{Reply: msgUnableToConnect, Confidence: ConfidenceNone})
		},
	})
}
