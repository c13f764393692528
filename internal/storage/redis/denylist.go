package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// BearerDenylist revokes still-valid bearer tokens at signout. Entries live
// only as long as the token itself would.
type BearerDenylist struct {
	client *redis.Client
}

func NewBearerDenylist(client *redis.Client) *BearerDenylist {
	return &BearerDenylist{client: client}
}

func (d *BearerDenylist) DenyToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denyKey(token), "denied", ttl).Err()
}

func (d *BearerDenylist) IsTokenDenied(ctx context.Context, token string) (bool, error) {
	_, err := d.client.Get(ctx, denyKey(token)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func denyKey(token string) string {
	return "bearer:denied:" + token
}
