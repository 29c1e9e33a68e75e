package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"am-client/internal/docstore"
	"am-client/internal/localrag"
	"am-client/internal/retry"
	"am-client/internal/transport"
)

// ConnectionState tracks the client's view of backend reachability.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOnline     ConnectionState = "online"
	StateOffline    ConnectionState = "offline"
	StateError      ConnectionState = "error" // caller-set only
)

// mediumConfidenceScore separates medium from low on the fallback path.
const mediumConfidenceScore = 0.3

// Config tunes retry and degradation behavior.
type Config struct {
	MaxRetries              int
	RetryBase               time.Duration
	ExponentialBackoff      bool
	FallbackEnabled         bool
	SettingsRefreshInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.SettingsRefreshInterval <= 0 {
		c.SettingsRefreshInterval = 5 * time.Minute
	}
	return c
}

// Client is the resilient orchestrator: it prefers the live backend and
// degrades to cached, locally searched answers when it can't.
//
// One mutex serializes connection state, the settings cache, and the lazy
// search index; transport calls happen outside it.
type Client struct {
	cfg       Config
	log       *slog.Logger
	transport transport.Transport
	store     docstore.Store
	engine    *localrag.Engine

	mu                sync.Mutex
	state             ConnectionState
	lastErr           error
	settings          transport.SystemSettings
	settingsFetchedAt time.Time
	hasSettings       bool
	sessionID         string
	onStateChange     func(ConnectionState)

	settingsGroup singleflight.Group
	now           func() time.Time
}

// AskOptions carries optional per-question parameters.
type AskOptions struct {
	SessionID    string
	Context      string
	SkipFallback bool
}

func New(log *slog.Logger, tr transport.Transport, store docstore.Store, engine *localrag.Engine, cfg Config) *Client {
	return &Client{
		cfg:       cfg.withDefaults(),
		log:       log,
		transport: tr,
		store:     store,
		engine:    engine,
		state:     StateConnecting,
		now:       time.Now,
	}
}

// OnStateChange registers the observer notified when the connection state
// changes value. Repeated identical states stay silent.
func (c *Client) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState lets the caller force a state, including StateError, which the
// client itself never enters.
func (c *Client) SetState(s ConnectionState) {
	c.setState(s)
}

// LastError returns the most recent transport failure, if any.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	fn := c.onStateChange
	c.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}

func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// Ask answers a question, live when possible, degraded when not. It never
// returns an error; every failure becomes an Answer.
func (c *Client) Ask(ctx context.Context, message string, opts AskOptions) Answer {
	if strings.TrimSpace(message) == "" {
		return Answer{Reply: msgEmptyQuestion, Confidence: ConfidenceNone}
	}

	settings := c.systemSettings(ctx, false)
	if settings.MaintenanceMode || settings.ForceOfflineClients {
		if !c.cacheValid(ctx, settings) {
			reply := settings.MaintenanceMessage
			if reply == "" {
				reply = msgMaintenance
			}
			return Answer{Reply: reply, Confidence: ConfidenceNone, Offline: true, DegradedReason: reasonMaintenance}
		}
		return c.fallback(ctx, message, reasonMaintenance)
	}

	resp, err := c.chatWithRetry(ctx, message, opts)
	if err == nil {
		c.setState(StateOnline)
		c.rememberSession(resp.SessionID)
		return liveAnswer(resp)
	}

	c.recordError(err)
	c.log.Warn("live call failed", "kind", transport.Classify(err), "err", err)

	if transport.Classify(err) == transport.KindRateLimit {
		// Rate limiting means slow down, not that the backend is gone;
		// falling back here would defeat the signal.
		return Answer{
			Reply:      msgRateLimited,
			Confidence: ConfidenceNone,
			RetryAfter: transport.RetryAfterSeconds(err),
		}
	}

	if c.cfg.FallbackEnabled && !opts.SkipFallback {
		return c.fallback(ctx, message, string(transport.Classify(err)))
	}
	return Answer{Reply: msgUnableToConnect, Confidence: ConfidenceNone}
}

func (c *Client) chatWithRetry(ctx context.Context, message string, opts AskOptions) (transport.ChatResponse, error) {
	copts := transport.ChatOptions{SessionID: c.sessionFor(opts), Context: opts.Context}
	policy := retry.Policy{
		MaxRetries:  c.cfg.MaxRetries,
		Base:        c.cfg.RetryBase,
		Exponential: c.cfg.ExponentialBackoff,
	}
	var resp transport.ChatResponse
	err := retry.Do(ctx, policy, transport.Retryable, func(ctx context.Context) error {
		r, err := c.transport.Chat(ctx, message, copts)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// fallback answers from the local cache via the lexical engine. Confidence
// caps at medium: an offline answer is never as trustworthy as a live one.
func (c *Client) fallback(ctx context.Context, message, reason string) Answer {
	c.setState(StateOffline)

	status, err := c.store.Status(ctx)
	if err != nil {
		c.log.Warn("cache status unavailable during fallback", "err", err)
		return Answer{Reply: msgOfflineTrouble, Confidence: ConfidenceNone, Offline: true, DegradedReason: reason}
	}
	if status.DocumentCount == 0 {
		return Answer{Reply: msgNoCache, Confidence: ConfidenceNone, Offline: true, DegradedReason: reason}
	}

	c.mu.Lock()
	if !c.engine.IsIndexed() {
		docs, err := c.store.Retrieve(ctx)
		if err != nil {
			c.mu.Unlock()
			c.log.Warn("cache retrieval failed during fallback", "err", err)
			return Answer{Reply: msgOfflineTrouble, Confidence: ConfidenceNone, Offline: true, DegradedReason: reason}
		}
		c.engine.Index(docs)
	}
	res := c.engine.Ask(message)
	c.mu.Unlock()

	confidence := ConfidenceLow
	if res.TopScore >= mediumConfidenceScore {
		confidence = ConfidenceMedium
	}
	if status.IsStale {
		reason += " (stale cache)"
	}

	sources := make([]AnswerSource, len(res.Sources))
	for i, s := range res.Sources {
		sources[i] = AnswerSource{Title: s.Title, Snippet: s.Snippet, Relevance: s.Relevance}
	}
	return Answer{
		Reply:          res.Answer,
		Confidence:     confidence,
		Sources:        sources,
		Offline:        true,
		DegradedReason: reason,
	}
}

// SyncCache pulls documents updated since the last sync and refreshes the
// cache and search index. An empty diff changes nothing. Sync is
// opportunistic; callers usually log the returned error and move on.
func (c *Client) SyncCache(ctx context.Context) error {
	since, err := c.store.LastSync(ctx)
	if err != nil {
		c.log.Warn("failed to read last sync timestamp; performing full sync", "err", err)
		since = nil
	}

	docs, err := c.transport.GetGeneralDocs(ctx, since)
	if err != nil {
		c.recordError(err)
		c.log.Warn("cache sync failed", "err", err)
		return err
	}
	c.setState(StateOnline)

	if len(docs) == 0 {
		return nil
	}

	existing, err := c.store.Retrieve(ctx)
	if err != nil {
		c.log.Warn("failed to read existing cache; syncing fresh set only", "err", err)
		existing = nil
	}
	merged := mergeDocuments(existing, docs)
	if err := c.store.Store(ctx, merged); err != nil {
		c.log.Warn("cache write failed during sync", "err", err)
	}

	// Re-index immediately so fallback answers never serve data older
	// than the sync that just completed.
	c.mu.Lock()
	c.engine.Index(merged)
	c.mu.Unlock()

	c.log.Info("cache synced", "received", len(docs), "total", len(merged))
	return nil
}

// ClearCache drops all cached documents and the search index.
func (c *Client) ClearCache(ctx context.Context) error {
	c.mu.Lock()
	c.engine.Reset()
	c.mu.Unlock()
	return c.store.Clear(ctx)
}

// CheckConnection probes the backend and flips the connection state.
func (c *Client) CheckConnection(ctx context.Context) bool {
	if _, err := c.transport.GetStatus(ctx); err != nil {
		c.recordError(err)
		c.setState(StateOffline)
		return false
	}
	c.setState(StateOnline)
	return true
}

// StatusReport is a snapshot of client health for status surfaces.
type StatusReport struct {
	State     ConnectionState          `json:"state"`
	Cache     docstore.CacheStatus     `json:"cache"`
	Settings  transport.SystemSettings `json:"settings"`
	LastError string                   `json:"last_error,omitempty"`
}

// Status reports the connection state, cache status, and cached settings.
func (c *Client) Status(ctx context.Context) StatusReport {
	cache, err := c.store.Status(ctx)
	if err != nil {
		c.log.Warn("cache status unavailable", "err", err)
	}
	c.mu.Lock()
	report := StatusReport{
		State:    c.state,
		Cache:    cache,
		Settings: c.settings,
	}
	if c.lastErr != nil {
		report.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()
	return report
}

// cacheValid gates the maintenance branch: the cache must exist, be
// non-empty, and be younger than the server's retention window. The
// general fallback branch tolerates stale data instead.
func (c *Client) cacheValid(ctx context.Context, settings transport.SystemSettings) bool {
	status, err := c.store.Status(ctx)
	if err != nil || status.DocumentCount == 0 || status.LastSyncAt == nil {
		return false
	}
	retention := settings.CacheRetentionHours
	if retention <= 0 {
		retention = defaultRetentionHours
	}
	return c.now().Sub(*status.LastSyncAt) < time.Duration(retention*float64(time.Hour))
}

func (c *Client) sessionFor(opts AskOptions) string {
	if opts.SessionID != "" {
		return opts.SessionID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) rememberSession(id string) {
	if id == "" {
		id = uuid.NewString()
	}
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// mergeDocuments overlays updates on existing by ID; updates win.
func mergeDocuments(existing, updates []docstore.ReferenceDocument) []docstore.ReferenceDocument {
	merged := make([]docstore.ReferenceDocument, len(existing), len(existing)+len(updates))
	copy(merged, existing)
	index := make(map[string]int, len(existing))
	for i, doc := range merged {
		index[doc.ID] = i
	}
	for _, doc := range updates {
		if i, ok := index[doc.ID]; ok {
			merged[i] = doc
			continue
		}
		index[doc.ID] = len(merged)
		merged = append(merged, doc)
	}
	return merged
}
