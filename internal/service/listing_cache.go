package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agency-ops-api/internal/dto"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/observability"
)

const (
	listingGlobalVersionKey = "assignments:version"
	listingUserVersionKey   = "assignments:user:%s:version"
	listingEntryKey         = "assignments:list:%s:%s:g%d:u%d"
)

// AssignmentListingCache caches per-user assignment listings in Redis.
//
// Entries are addressed by a global version, bumped by any assignment write, and a
// per-user version, bumped by completion writes and role changes. Bumping a version
// orphans the old entries, which then expire through the TTL.
type AssignmentListingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewAssignmentListingCache builds the cache. A nil client disables caching.
func NewAssignmentListingCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *AssignmentListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AssignmentListingCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "assignment_listing_cache").Logger(),
	}
}

// Get returns the cached listing and the key it is stored under. The key is empty when
// caching is unavailable.
func (c *AssignmentListingCache) Get(ctx context.Context, userID string, kind models.ItemKind) ([]dto.VisibleAssignment, string, bool) {
	if c == nil || c.client == nil {
		return nil, "", false
	}

	versions, err := c.client.MGet(ctx, listingGlobalVersionKey, fmt.Sprintf(listingUserVersionKey, userID)).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read listing cache versions")
		return nil, "", false
	}

	kindLabel := string(kind)
	if kindLabel == "" {
		kindLabel = "all"
	}
	key := fmt.Sprintf(listingEntryKey, userID, kindLabel, parseVersion(versions[0]), parseVersion(versions[1]))

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read listing cache")
		}
		observability.AssignmentListingCache().WithLabelValues("miss").Inc()
		return nil, key, false
	}

	var items []dto.VisibleAssignment
	if err := json.Unmarshal([]byte(cached), &items); err != nil {
		observability.AssignmentListingCache().WithLabelValues("miss").Inc()
		return nil, key, false
	}

	observability.AssignmentListingCache().WithLabelValues("hit").Inc()
	return items, key, true
}

// Set stores a listing under a key previously returned by Get.
func (c *AssignmentListingCache) Set(ctx context.Context, key string, items []dto.VisibleAssignment) {
	if c == nil || c.client == nil || key == "" {
		return
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store listing cache")
	}
}

// InvalidateAll orphans every cached listing.
func (c *AssignmentListingCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, listingGlobalVersionKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to bump listing cache version")
	}
}

// InvalidateUser orphans the cached listings of one user.
func (c *AssignmentListingCache) InvalidateUser(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, fmt.Sprintf(listingUserVersionKey, userID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to bump user listing cache version")
	}
}

func parseVersion(value interface{}) int64 {
	str, ok := value.(string)
	if !ok {
		return 0
	}
	version, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0
	}
	return version
}
