package cache

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/remote"
)

// LookupCache stores AI lookup responses by food name. Cache failures are
// logged and treated as misses.
type LookupCache struct {
	store  *FileStore
	logger zerolog.Logger
}

// NewLookupCache wraps store.
func NewLookupCache(store *FileStore, logger zerolog.Logger) *LookupCache {
	return &LookupCache{store: store, logger: logging.ComponentLogger(logger, "cache")}
}

// GetLookup returns the cached response for foodName.
func (c *LookupCache) GetLookup(foodName string) (*remote.LookupResponse, bool) {
	e, err := c.store.Get(LookupKey(foodName))
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) && !errors.Is(err, ErrDisabled) {
			c.logger.Warn().Err(err).Str("food", foodName).Msg("lookup cache read failed")
		}
		return nil, false
	}
	var resp remote.LookupResponse
	if err := json.Unmarshal(e.Data, &resp); err != nil {
		c.logger.Warn().Err(err).Str("food", foodName).Msg("lookup cache entry unreadable")
		return nil, false
	}
	c.logger.Debug().Str("food", foodName).Msg("lookup cache hit")
	return &resp, true
}

// PutLookup stores resp for foodName.
func (c *LookupCache) PutLookup(foodName string, resp *remote.LookupResponse) {
	if resp == nil || !c.store.Enabled() {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn().Err(err).Msg("lookup cache encode failed")
		return
	}
	if err := c.store.Set(LookupKey(foodName), NormalizeName(foodName), data); err != nil {
		c.logger.Warn().Err(err).Str("food", foodName).Msg("lookup cache write failed")
	}
}
