package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealer-service/internal/models"

	"github.com/go-redis/redis/v8"
)

// Listing cache scopes
const (
	ScopeAll       = "all"
	ScopeAvailable = "available"
)

// Client is the process-wide listing cache. A cache miss is the only error a
// reader should ever see; infrastructure errors are the caller's to log and
// ignore, since stale listings are repaired by the next read.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// ErrCacheMiss is returned when a listing scope has no cached value
var ErrCacheMiss = errors.New("listing cache miss")

// NewClient creates a new Redis-backed listing cache
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func listingKey(scope string) string {
	return fmt.Sprintf("listings:%s", scope)
}

func vehicleKey(vehicleID int64) string {
	return fmt.Sprintf("vehicle:%d", vehicleID)
}

// GetListing retrieves the cached listing for a scope
func (c *Client) GetListing(ctx context.Context, scope string) ([]models.Vehicle, error) {
	data, err := c.rdb.Get(ctx, listingKey(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("listing cache read failed: %w", err)
	}

	var vehicles []models.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, fmt.Errorf("listing cache decode failed: %w", err)
	}
	return vehicles, nil
}

// SetListing stores a listing for a scope with the configured TTL
func (c *Client) SetListing(ctx context.Context, scope string, vehicles []models.Vehicle) error {
	data, err := json.Marshal(vehicles)
	if err != nil {
		return fmt.Errorf("listing cache encode failed: %w", err)
	}
	return c.rdb.Set(ctx, listingKey(scope), data, c.ttl).Err()
}

// GetVehicle retrieves a cached single-vehicle read
func (c *Client) GetVehicle(ctx context.Context, vehicleID int64) (*models.Vehicle, error) {
	data, err := c.rdb.Get(ctx, vehicleKey(vehicleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("vehicle cache read failed: %w", err)
	}

	var v models.Vehicle
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("vehicle cache decode failed: %w", err)
	}
	return &v, nil
}

// SetVehicle caches a single-vehicle read
func (c *Client) SetVehicle(ctx context.Context, v *models.Vehicle) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("vehicle cache encode failed: %w", err)
	}
	return c.rdb.Set(ctx, vehicleKey(v.ID), data, c.ttl).Err()
}

// InvalidateListings clears both scope keys and any per-vehicle keys for the
// given IDs. Clear-and-repopulate; the next read refills.
func (c *Client) InvalidateListings(ctx context.Context, vehicleIDs ...int64) error {
	keys := []string{listingKey(ScopeAll), listingKey(ScopeAvailable)}
	for _, id := range vehicleIDs {
		keys = append(keys, vehicleKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
