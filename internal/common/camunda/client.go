// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"place-discovery/internal/common/config"
	"place-discovery/internal/common/logger"
)

// Client wraps the Zeebe gRPC client and the job workers opened on it.
type Client struct {
	client zbc.Client
	config *ClientConfig
	logger logger.Logger

	mu      sync.Mutex
	workers []worker.JobWorker
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	Retry                  RetryConfig
}

// RetryConfig bounds the connection attempts made at startup.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// ConfigFrom maps the camunda section of the service configuration.
func ConfigFrom(c config.CamundaConfig) *ClientConfig {
	timeout := config.GetDuration(c.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClientConfig{
		GatewayAddress:         c.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      timeout,
		Retry:                  DefaultRetryConfig,
	}
}

// Connect creates the client and waits until the gateway answers a topology request,
// retrying transient failures with exponential backoff.
func Connect(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		client: zeebeClient,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "zeebe", "gateway": cfg.GatewayAddress}),
	}

	for attempt := 0; ; attempt++ {
		err = c.HealthCheck(ctx)
		if err == nil {
			return c, nil
		}
		if !isRetryableZeebeError(err) || attempt >= cfg.Retry.MaxRetries {
			break
		}

		delay := backoff(cfg.Retry, attempt)
		c.logger.WithError(err).Warn("zeebe gateway not ready, retrying", map[string]interface{}{
			"attempt":     attempt + 1,
			"maxRetries":  cfg.Retry.MaxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
			_ = zeebeClient.Close()
			return nil, fmt.Errorf("connect to Zeebe gateway %s: %w", cfg.GatewayAddress, err)
		}
	}

	_ = zeebeClient.Close()
	return nil, fmt.Errorf("connect to Zeebe gateway %s: %w", cfg.GatewayAddress, err)
}

func backoff(r RetryConfig, attempt int) time.Duration {
	delay := r.BaseDelay * time.Duration(1<<attempt)
	if delay <= 0 || (r.MaxDelay > 0 && delay > r.MaxDelay) {
		return r.MaxDelay
	}
	return delay
}

// isRetryableZeebeError checks if the error is transient and should be retried.
func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// HealthCheck sends a topology request to the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// Close stops every opened worker, then releases the gRPC connection.
func (c *Client) Close() error {
	c.mu.Lock()
	workers := c.workers
	c.workers = nil
	c.mu.Unlock()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	return c.client.Close()
}
