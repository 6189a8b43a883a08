// Package tracking reports page visits to the analytics endpoint. Reports run
// detached from the request and never affect cart state.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts    = 3
	attemptTimeout = 5 * time.Second
	baseDelay      = time.Second
)

// Visit is the payload expected by the visitor endpoint.
type Visit struct {
	Page    string `json:"page_visitors"`
	City    string `json:"city_visitors"`
	Country string `json:"country_visitors"`
	IP      string `json:"ip_visitors"`
	Date    string `json:"date_visitors"`
}

type Tracker struct {
	endpoint  string
	client    *http.Client
	logger    *zap.Logger
	baseDelay time.Duration
	wg        sync.WaitGroup
}

func NewTracker(endpoint string, logger *zap.Logger) *Tracker {
	return &Tracker{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: attemptTimeout},
		logger:    logger,
		baseDelay: baseDelay,
	}
}

// Track sends the visit in the background. A tracker without endpoint drops it.
func (t *Tracker) Track(v Visit) {
	if t.endpoint == "" {
		return
	}
	if v.Date == "" {
		v.Date = time.Now().Format("2006-01-02 15:04:05")
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.send(context.Background(), v); err != nil {
			t.logger.Warn("visit not recorded", zap.String("page", v.Page), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight reports finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) send(ctx context.Context, v Visit) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal visit failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(t.baseDelay << (attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = t.post(ctx, body); lastErr == nil {
			return nil
		}
		t.logger.Debug("visit report failed", zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (t *Tracker) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("visitor endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
