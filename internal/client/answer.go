package client

import "am-client/internal/transport"

// Confidence grades how much trust a caller should place in an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// AnswerSource is one document backing an answer.
type AnswerSource struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// Answer is the client's reply to a question. Every code path produces
// one; Ask and AskStream never surface an error to the caller.
type Answer struct {
	Reply          string         `json:"reply"`
	Confidence     Confidence     `json:"confidence"`
	Sources        []AnswerSource `json:"sources,omitempty"`
	Offline        bool           `json:"offline"`
	SessionID      string         `json:"session_id,omitempty"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
	RetryAfter     int            `json:"retry_after,omitempty"` // seconds
}

// User-facing replies for the failure branches.
const (
	msgEmptyQuestion   = "Please enter a question so I can help."
	msgMaintenance     = "The assistant is undergoing maintenance. Please try again shortly."
	msgRateLimited     = "I'm receiving too many requests right now. Please wait a moment before asking again."
	msgNoCache         = "I can't reach the assistant service and no cached information is available yet. Please try again once the connection is restored."
	msgUnableToConnect = "I'm unable to connect to the assistant service right now. Please try again shortly."
	msgOfflineTrouble  = "I had trouble processing your question offline. Please try again."
)

const reasonMaintenance = "maintenance"

func liveAnswer(resp transport.ChatResponse) Answer {
	sources := make([]AnswerSource, len(resp.Sources))
	for i, s := range resp.Sources {
		sources[i] = AnswerSource{Title: s.Title, Snippet: s.Snippet, Relevance: s.Relevance}
	}
	return Answer{
		Reply:      resp.Reply,
		Confidence: ConfidenceHigh,
		Sources:    sources,
		SessionID:  resp.SessionID,
	}
}
