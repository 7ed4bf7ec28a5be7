// Package models maintains the catalog of selectable models, fetched
// from the provider and cached.
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/cache/redis"
)

const (
	// catalogCacheKey is the Redis key for the cached model list.
	catalogCacheKey = "chatcore:models"
	// catalogCacheTTL is how long to cache the list (short so newly
	// published models show up without a restart).
	catalogCacheTTL = 5 * time.Minute
)

// Model describes a selectable model.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

// listResponse is the provider's /models response.
type listResponse struct {
	Data []Model `json:"data"`
}

// Catalog fetches and caches the available model list.
type Catalog struct {
	baseURL    string
	redis      *redis.Client
	httpClient *http.Client
	logger     *logrus.Logger

	// In-memory cache with expiry
	models      []Model
	modelsMu    sync.RWMutex
	cacheExpiry time.Time
}

// NewCatalog creates a model catalog. redisClient may be nil; caching
// then happens only in memory.
func NewCatalog(baseURL string, redisClient *redis.Client, logger *logrus.Logger) *Catalog {
	return &Catalog{
		baseURL: baseURL,
		redis:   redisClient,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// List returns the available models, fetching from the provider when
// both caches are expired. On fetch failure it returns the stale cached
// list rather than an error, so model selection keeps working offline.
func (c *Catalog) List(ctx context.Context) []Model {
	c.modelsMu.RLock()
	if time.Now().Before(c.cacheExpiry) && len(c.models) > 0 {
		models := c.models
		c.modelsMu.RUnlock()
		return models
	}
	c.modelsMu.RUnlock()

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, catalogCacheKey)
		if err == nil && cached != "" {
			var models []Model
			if err := json.Unmarshal([]byte(cached), &models); err == nil && len(models) > 0 {
				c.modelsMu.Lock()
				c.models = models
				c.cacheExpiry = time.Now().Add(catalogCacheTTL)
				c.modelsMu.Unlock()
				return models
			}
		}
	}

	models, err := c.fetch(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("failed to fetch model catalog")
		c.modelsMu.RLock()
		stale := c.models
		c.modelsMu.RUnlock()
		return stale
	}

	c.modelsMu.Lock()
	c.models = models
	c.cacheExpiry = time.Now().Add(catalogCacheTTL)
	c.modelsMu.Unlock()

	if c.redis != nil {
		if data, err := json.Marshal(models); err == nil {
			if err := c.redis.Set(ctx, catalogCacheKey, string(data), catalogCacheTTL); err != nil {
				c.logger.WithError(err).Warn("failed to cache model catalog in Redis")
			}
		}
	}

	c.logger.WithField("count", len(models)).Debug("fetched model catalog")
	return models
}

// fetch calls the provider's /models endpoint.
func (c *Catalog) fetch(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Data, nil
}
