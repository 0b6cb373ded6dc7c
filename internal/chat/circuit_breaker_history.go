package chat

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"chatrelay/internal/config"
	"chatrelay/pkg/circuitbreaker"
	"chatrelay/pkg/models"
)

// CircuitBreakerHistoryStore guards the history store against a degraded
// Redis. The relay keeps pushing live traffic while the breaker is open;
// only persistence and reads fail fast.
type CircuitBreakerHistoryStore struct {
	store HistoryStore
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerHistoryStore(store HistoryStore, cfg config.CircuitBreakerConfig) *CircuitBreakerHistoryStore {
	if !cfg.Enabled {
		return &CircuitBreakerHistoryStore{
			store: store,
			cb:    nil,
		}
	}

	cbConfig := circuitbreaker.DefaultConfig("redis-history")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerHistoryStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerHistoryStore) Append(ctx context.Context, channel string, msg models.ChatMessage) error {
	if s.cb == nil {
		return s.store.Append(ctx, channel, msg)
	}

	_, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, s.store.Append(ctx, channel, msg)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil && s.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for redis-history: %w", err)
	}
	return err
}

func (s *CircuitBreakerHistoryStore) Range(ctx context.Context, channel string) ([]Entry, error) {
	if s.cb == nil {
		return s.store.Range(ctx, channel)
	}

	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.Range(ctx, channel)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for redis-history: %w", err)
		}
		return nil, err
	}

	entries, ok := result.([]Entry)
	if !ok {
		return nil, fmt.Errorf("history store returned invalid result type")
	}
	return entries, nil
}

func (s *CircuitBreakerHistoryStore) SoftDelete(ctx context.Context, channel, userID string) error {
	if s.cb == nil {
		return s.store.SoftDelete(ctx, channel, userID)
	}

	_, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, s.store.SoftDelete(ctx, channel, userID)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil && s.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for redis-history: %w", err)
	}
	return err
}

func (s *CircuitBreakerHistoryStore) Read(ctx context.Context, channel, viewer string) ([]models.ChatMessage, error) {
	if s.cb == nil {
		return s.store.Read(ctx, channel, viewer)
	}

	result, err := s.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return s.store.Read(ctx, channel, viewer)
	})

	s.cb.RecordRequest(err == nil)

	if err != nil {
		if s.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for redis-history: %w", err)
		}
		return nil, err
	}

	msgs, ok := result.([]models.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("history store returned invalid result type")
	}
	return msgs, nil
}

func (s *CircuitBreakerHistoryStore) State() string {
	if s.cb == nil {
		return "disabled"
	}
	return s.cb.State().String()
}

func (s *CircuitBreakerHistoryStore) IsOpen() bool {
	if s.cb == nil {
		return false
	}
	return s.cb.IsOpen()
}
