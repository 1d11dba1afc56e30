package database

import (
	"context"
	"fmt"
	"net/http"

	"hireflow/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// DefaultESMaxRetries applies when the config leaves max_retries at zero.
const DefaultESMaxRetries = 3

// ElasticsearchClient holds the client for the application search index.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch retries 502, 503 and 504 responses as well as transport
// errors, up to the configured count.
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("elasticsearch addresses are required")
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = DefaultESMaxRetries
	}
	esCfg := elasticsearch.Config{
		Addresses:     cfg.Addresses,
		MaxRetries:    retries,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
