package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/CatiaMachado997/EthicompanionV2/internal/observability"
	"github.com/CatiaMachado997/EthicompanionV2/internal/reliability"
)

const (
	// DefaultStoreTimeout bounds each individual store call.
	DefaultStoreTimeout = 5 * time.Second

	defaultRecentLimit   = 5
	defaultSemanticLimit = 3

	retryBase = 100 * time.Millisecond
	retryCap  = time.Second
)

// Options tunes the manager's store calls.
type Options struct {
	// StoreTimeout bounds each store call; zero means DefaultStoreTimeout.
	StoreTimeout time.Duration
	// SemanticRetries is how many extra attempts a retryable semantic write
	// failure gets before being downgraded to a tolerated partial failure.
	SemanticRetries int
}

// Manager owns both store handles and implements the subsystem's write and
// read policies. It is stateless across calls beyond the handles it owns;
// callers needing strict per-session ordering must serialize their own
// AddTurn calls for the same session id.
type Manager struct {
	episodic EpisodicStore
	semantic SemanticStore
	metrics  *observability.Metrics // nil disables instrumentation
	opts     Options

	closeOnce sync.Once
	closeErr  error
}

func NewManager(episodic EpisodicStore, semantic SemanticStore, metrics *observability.Metrics, opts Options) *Manager {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.SemanticRetries < 0 {
		opts.SemanticRetries = 0
	}
	return &Manager{
		episodic: episodic,
		semantic: semantic,
		metrics:  metrics,
		opts:     opts,
	}
}

// AddTurn records a turn stamped with the current UTC time.
func (m *Manager) AddTurn(ctx context.Context, sessionID, userMessage, assistantMessage string) bool {
	return m.AddTurnAt(ctx, sessionID, userMessage, assistantMessage, time.Now().UTC())
}

// AddTurnAt records a turn in both stores, fanning the writes out
// concurrently. There is no cross-store transaction: the episodic write is
// authoritative and the result is true iff it committed. A semantic failure
// is logged and tolerated, never escalated.
func (m *Manager) AddTurnAt(ctx context.Context, sessionID, userMessage, assistantMessage string, ts time.Time) bool {
	var wg sync.WaitGroup
	var episodicErr, semanticErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
		defer cancel()
		episodicErr = m.episodic.Append(callCtx, sessionID, userMessage, assistantMessage, ts)
	}()
	go func() {
		defer wg.Done()
		semanticErr = m.upsertWithRetry(ctx, Document{
			SessionID:        sessionID,
			UserMessage:      userMessage,
			AssistantMessage: assistantMessage,
			Timestamp:        ts,
		})
	}()
	wg.Wait()

	if episodicErr != nil {
		log.Printf("memory: episodic append failed (session %s): %v", sessionID, episodicErr)
		m.countStoreError("episodic", episodicErr)
		m.countTurn("failed")
		return false
	}

	if semanticErr != nil {
		log.Printf("memory: semantic upsert failed, turn kept episodic-only (session %s): %v", sessionID, semanticErr)
		m.countStoreError("semantic", semanticErr)
		m.countTurn("episodic_only")
		return true
	}

	m.countTurn("stored")
	return true
}

func (m *Manager) upsertWithRetry(ctx context.Context, doc Document) error {
	attempts := m.opts.SemanticRetries + 1
	return reliability.Retry(ctx, attempts, retryBase, retryCap, retryableKind, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
		defer cancel()
		_, err := m.semantic.Upsert(callCtx, doc)
		return err
	})
}

func retryableKind(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindWrite, KindTimeout:
		return true
	default:
		return false
	}
}

// GetContext assembles the hybrid context block for a query. It never
// returns an error: a failed or timed-out branch degrades to an empty slice,
// and a fully empty result is the sentinel string, never "".
func (m *Manager) GetContext(ctx context.Context, sessionID, query string, recentCount, semanticCount int) string {
	return m.GetContextMode(ctx, ModeHybrid, sessionID, query, recentCount, semanticCount)
}

// GetContextMode is GetContext with an explicit mode; a disabled branch is
// skipped up front rather than fetched and discarded.
func (m *Manager) GetContextMode(ctx context.Context, mode ContextMode, sessionID, query string, recentCount, semanticCount int) string {
	started := time.Now()
	if recentCount <= 0 {
		recentCount = defaultRecentLimit
	}
	if semanticCount <= 0 {
		semanticCount = defaultSemanticLimit
	}
	m.countContext(mode)
	if mode == ModeNone {
		return NoContextSentinel
	}

	var (
		wg       sync.WaitGroup
		recent   []Message
		memories []RetrievedMemory
	)

	// Fan out to both stores and join on both completions; neither failure
	// is fatal for a read, so there is no early cancellation.
	if mode == ModeHybrid || mode == ModeRecentOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
			defer cancel()
			r, err := m.episodic.Recent(callCtx, sessionID, recentCount)
			if err != nil {
				log.Printf("memory: recent history unavailable (session %s): %v", sessionID, err)
				m.countStoreError("episodic", err)
				return
			}
			recent = r
		}()
	}
	if mode == ModeHybrid || mode == ModeSemanticOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
			defer cancel()
			docs, err := m.semantic.SearchSimilar(callCtx, query, semanticCount, sessionID)
			if err != nil {
				log.Printf("memory: semantic search unavailable (session %s): %v", sessionID, err)
				m.countStoreError("semantic", err)
				return
			}
			memories = docs
		}()
	}
	wg.Wait()

	if m.metrics != nil {
		m.metrics.ObserveContextLatency(time.Since(started))
	}
	return FormatContext(recent, memories)
}

// Stats aggregates per-store diagnostics. A failing store yields a partial
// result with its status flag set; the call itself never fails.
func (m *Manager) Stats(ctx context.Context) Stats {
	st := Stats{EpisodicStatus: StoreStatusOK, SemanticStatus: StoreStatusOK}

	epCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
	ep, err := m.episodic.Stats(epCtx)
	cancel()
	if err != nil {
		log.Printf("memory: episodic stats unavailable: %v", err)
		m.countStoreError("episodic", err)
		st.EpisodicStatus = StoreStatusError
	} else {
		st.EpisodicMessages = ep.Messages
		st.Sessions = ep.Sessions
		st.LastMessageAt = ep.LastMessageAt
	}

	semCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
	count, err := m.semantic.CountAll(semCtx)
	cancel()
	if err != nil {
		log.Printf("memory: semantic count unavailable: %v", err)
		m.countStoreError("semantic", err)
		st.SemanticStatus = StoreStatusError
	} else {
		st.SemanticDocuments = count
	}

	switch {
	case st.EpisodicStatus == StoreStatusOK && st.SemanticStatus == StoreStatusOK:
		st.Status = StatusOperational
	case st.EpisodicStatus == StoreStatusError && st.SemanticStatus == StoreStatusError:
		st.Status = StatusError
	default:
		st.Status = StatusDegraded
	}
	return st
}

// SessionStats reports per-session episodic counters.
func (m *Manager) SessionStats(ctx context.Context, sessionID string) (SessionStats, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
	defer cancel()
	return m.episodic.SessionStats(callCtx, sessionID)
}

// Cleanup removes episodic rows older than the retention window. Intended
// for out-of-band maintenance, never the request path.
func (m *Manager) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.opts.StoreTimeout)
	defer cancel()
	return m.episodic.Cleanup(callCtx, retention)
}

// StartJanitor runs retention cleanup on a ticker until ctx ends.
func (m *Manager) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				deleted, err := m.Cleanup(ctx, retention)
				if err != nil {
					log.Printf("memory: retention cleanup failed: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("memory: retention cleanup removed %d rows", deleted)
				}
			}
		}
	}()
}

// Close releases both store handles. Idempotent under repeat calls.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		if err := m.episodic.Close(); err != nil {
			m.closeErr = err
		}
		if err := m.semantic.Close(); err != nil && m.closeErr == nil {
			m.closeErr = err
		}
	})
	return m.closeErr
}

func (m *Manager) countTurn(outcome string) {
	if m.metrics != nil {
		m.metrics.TurnsStored.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) countContext(mode ContextMode) {
	if m.metrics != nil {
		m.metrics.ContextRequests.WithLabelValues(string(mode)).Inc()
	}
}

func (m *Manager) countStoreError(store string, err error) {
	if m.metrics == nil {
		return
	}
	kind := KindOf(err)
	if kind == "" {
		kind = "unclassified"
	}
	m.metrics.StoreErrors.WithLabelValues(store, string(kind)).Inc()
}
