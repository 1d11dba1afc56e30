// Package camunda connects to the Zeebe gateway and registers job workers.
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
)

// ClientConfig holds configuration for the Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds the connection attempts made by Connect.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect dials the gateway and waits for a topology response, retrying
// transient failures with exponential backoff.
func Connect(ctx context.Context, cfg ClientConfig, log logger.Logger) (zbc.Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	var lastErr error
	delay := cfg.RetryConfig.BaseDelay
	for attempt := 0; attempt <= cfg.RetryConfig.MaxRetries; attempt++ {
		client, err := dial(ctx, cfg)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == cfg.RetryConfig.MaxRetries {
			break
		}

		log.Warn("zeebe gateway unavailable, retrying", map[string]interface{}{
			"gateway":     cfg.GatewayAddress,
			"attempt":     attempt + 1,
			"nextRetryIn": delay.String(),
			"error":       err,
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > cfg.RetryConfig.MaxDelay {
			delay = cfg.RetryConfig.MaxDelay
		}
	}
	return nil, mapZeebeError(lastErr, "connect")
}

func dial(ctx context.Context, cfg ClientConfig) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("zeebe gateway %s: %w", cfg.GatewayAddress, err)
	}
	return client, nil
}

// HealthCheck asks the gateway for its topology.
func HealthCheck(ctx context.Context, client zbc.Client) error {
	if _, err := client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "unauthorized") {
		return errors.NewAuthenticationError(fmt.Sprintf("zeebe %s: %v", operation, err))
	}
	return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %w", operation, err))
}
