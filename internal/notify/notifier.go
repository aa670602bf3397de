// Package notify delivers ledger and capture events to operator-configured
// HTTP sinks. Sinks come from service configuration rather than a database;
// delivery health is tracked in memory and exposed through the API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pitabwire/frame/workerpool"

	"github.com/voxpense/voxpense/pkg/events"
	"github.com/voxpense/voxpense/pkg/urlvalidation"
)

// Config holds delivery-related settings for outbound notifications.
type Config struct {
	SinkURLs          []string
	Secret            string
	MaxRetries        int
	TimeoutSec        int
	BackoffInitialSec int
	BackoffMaxSec     int
	CBFailThreshold   int
	CBResetTimeoutSec int
	AllowLocalSinks   bool
}

// SinkStatus is a point-in-time view of one sink's delivery health.
type SinkStatus struct {
	URL             string `json:"url"`
	CircuitState    string `json:"circuit_state"`
	Delivered       int64  `json:"delivered"`
	Failed          int64  `json:"failed"`
	LastError       string `json:"last_error,omitempty"`
	LastDeliveredAt string `json:"last_delivered_at,omitempty"`
}

type sinkState struct {
	url     string
	breaker *gobreaker.CircuitBreaker[int]

	mu        sync.Mutex
	delivered int64
	failed    int64
	lastError string
	lastAt    time.Time
}

func (s *sinkState) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered++
	s.lastError = ""
	s.lastAt = time.Now().UTC()
}

func (s *sinkState) recordFailure(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.lastError = errMsg
}

func (s *sinkState) status() SinkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SinkStatus{
		URL:          s.url,
		CircuitState: s.breaker.State().String(),
		Delivered:    s.delivered,
		Failed:       s.failed,
		LastError:    s.lastError,
	}
	if !s.lastAt.IsZero() {
		st.LastDeliveredAt = s.lastAt.Format(time.RFC3339)
	}
	return st
}

// Notifier fans event envelopes out to the configured sinks.
type Notifier struct {
	config       Config
	httpClient   *http.Client
	pool         workerpool.WorkerPool
	sinks        []*sinkState
	validateOpts []urlvalidation.Option
}

// NewNotifier creates a notifier for the configured sink URLs.
func NewNotifier(cfg Config, pool workerpool.WorkerPool) *Notifier {
	n := &Notifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		pool: pool,
	}
	if cfg.AllowLocalSinks {
		n.validateOpts = append(n.validateOpts, urlvalidation.AllowPrivateIPs())
	}

	for _, url := range cfg.SinkURLs {
		url := url
		n.sinks = append(n.sinks, &sinkState{
			url: url,
			breaker: gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
				Name:        url,
				MaxRequests: 1,
				Timeout:     time.Duration(cfg.CBResetTimeoutSec) * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return int(counts.ConsecutiveFailures) >= cfg.CBFailThreshold
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					slog.Info("sink circuit state changed",
						slog.String("sink", name),
						slog.String("from", from.String()),
						slog.String("to", to.String()))
				},
			}),
		})
	}
	return n
}

// SinkCount returns the number of configured sinks.
func (n *Notifier) SinkCount() int { return len(n.sinks) }

// Statuses returns the delivery health of every configured sink.
func (n *Notifier) Statuses() []SinkStatus {
	statuses := make([]SinkStatus, 0, len(n.sinks))
	for _, s := range n.sinks {
		statuses = append(statuses, s.status())
	}
	return statuses
}

// Fanout schedules delivery of one envelope to every configured sink.
func (n *Notifier) Fanout(ctx context.Context, env events.Envelope) {
	for _, s := range n.sinks {
		s := s
		if n.pool != nil {
			if err := n.pool.Submit(ctx, func() {
				n.deliverWithRetry(ctx, s, env, 1)
			}); err != nil {
				slog.WarnContext(ctx, "notify pool full, dropping delivery",
					slog.String("sink", s.url),
					slog.String("event_id", env.ID))
			}
		} else {
			go n.deliverWithRetry(ctx, s, env, 1)
		}
	}
}

func (n *Notifier) deliverWithRetry(ctx context.Context, s *sinkState, env events.Envelope, attempt int) {
	if err := urlvalidation.ValidateSinkURL(s.url, n.validateOpts...); err != nil {
		s.recordFailure(err.Error())
		slog.ErrorContext(ctx, "sink URL failed validation",
			slog.String("sink", s.url),
			slog.String("error", err.Error()))
		return
	}

	body, err := json.Marshal(env)
	if err != nil {
		s.recordFailure(fmt.Sprintf("marshal: %v", err))
		return
	}

	status, err := s.breaker.Execute(func() (int, error) {
		return n.post(ctx, s.url, env, body)
	})

	if err == nil {
		s.recordSuccess()
		slog.DebugContext(ctx, "sink delivery succeeded",
			slog.String("sink", s.url),
			slog.String("event_id", env.ID),
			slog.Int("status", status),
			slog.Int("attempt", attempt))
		return
	}

	errMsg := err.Error()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		errMsg = "circuit open"
	}
	s.recordFailure(errMsg)
	n.handleFailure(ctx, s, env, attempt, errMsg)
}

func (n *Notifier) post(ctx context.Context, url string, env events.Envelope, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.config.Secret, body))
	}
	req.Header.Set("X-Voxpense-Event", string(env.Type))
	req.Header.Set("X-Voxpense-Delivery", env.ID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain for connection reuse.
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
}

func (n *Notifier) handleFailure(ctx context.Context, s *sinkState, env events.Envelope, attempt int, errMsg string) {
	if attempt >= n.config.MaxRetries {
		slog.ErrorContext(ctx, "sink delivery abandoned",
			slog.String("sink", s.url),
			slog.String("event_id", env.ID),
			slog.Int("attempts", attempt),
			slog.String("error", errMsg))
		return
	}

	// Schedule retry with exponential backoff via worker pool.
	backoff := n.config.BackoffInitialSec * (1 << (attempt - 1))
	if backoff > n.config.BackoffMaxSec {
		backoff = n.config.BackoffMaxSec
	}

	retryFunc := func() {
		timer := time.NewTimer(time.Duration(backoff) * time.Second)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			n.deliverWithRetry(ctx, s, env, attempt+1)
		}
	}

	if n.pool != nil {
		if err := n.pool.Submit(ctx, retryFunc); err != nil {
			slog.WarnContext(ctx, "retry pool full, dropping retry",
				slog.String("sink", s.url),
				slog.Int("attempt", attempt))
		}
	} else {
		time.AfterFunc(time.Duration(backoff)*time.Second, func() {
			n.deliverWithRetry(ctx, s, env, attempt+1)
		})
	}
}
