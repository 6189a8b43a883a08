package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrRejected is returned when the emailer refuses the payload. Rejections do
// not count against the circuit breaker.
var ErrRejected = errors.New("confirmation rejected by emailer")

type Sender interface {
	Send(ctx context.Context, c Confirmation) error
}

// Client posts confirmations to the emailer endpoint through a circuit breaker.
type Client struct {
	endpoint string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[struct{}]
	logger   *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Send(ctx context.Context, conf Confirmation) error {
	body, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("marshal confirmation failed: %w", err)
	}

	_, err = c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("send confirmation %s: %w", conf.OrderID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("emailer request failed: %w", err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	default:
		return fmt.Errorf("emailer returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
}

// NopSender only logs. Used when no emailer endpoint is configured.
type NopSender struct {
	Logger *zap.Logger
}

func (n NopSender) Send(_ context.Context, c Confirmation) error {
	n.Logger.Info("confirmation email skipped", zap.String("order_id", c.OrderID), zap.String("email", c.UserDetails.Email))
	return nil
}
