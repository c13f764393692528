package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
)

type fakeDenylist struct {
	mu     sync.Mutex
	denied map[string]time.Duration
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{denied: make(map[string]time.Duration)}
}

func (d *fakeDenylist) DenyToken(_ context.Context, token string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied[token] = ttl
	return nil
}

func (d *fakeDenylist) IsTokenDenied(_ context.Context, token string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.denied[token]
	return ok, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []service.IPChange
}

func (n *recordingNotifier) NotifyIPChange(_ context.Context, change service.IPChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func TestSignoutDeniesBearerToken(t *testing.T) {
	denylist := newFakeDenylist()
	env, err := newManagerEnv(nil, service.WithDenylist[testOwner](denylist))
	require.NoError(t, err)
	ctx := context.Background()

	bearer, err := env.manager.Signin(ctx, env.owner, testFingerprint, nil)
	require.NoError(t, err)

	_, _, err = env.manager.Authenticate(ctx, bearer, testFingerprint)
	require.NoError(t, err)

	require.NoError(t, env.manager.Signout(ctx, bearer, testFingerprint))

	// The bearer is still cryptographically fresh, but signout revoked it.
	_, _, err = env.manager.Authenticate(ctx, bearer, testFingerprint)
	require.ErrorIs(t, err, service.ErrNotAuthenticated)
	require.ErrorIs(t, err, service.ErrBearerRevoked)

	denylist.mu.Lock()
	defer denylist.mu.Unlock()
	require.Len(t, denylist.denied, 1)
	for _, ttl := range denylist.denied {
		require.Equal(t, time.Minute, ttl, "denied exactly until the bearer's natural expiry")
	}
}

func TestRotationNotifiesIPChange(t *testing.T) {
	notifier := &recordingNotifier{}
	env, err := newManagerEnv(nil, service.WithNotifier[testOwner](notifier))
	require.NoError(t, err)
	ctx := context.Background()

	bearer, err := env.manager.Signin(ctx, env.owner, testFingerprint, nil)
	require.NoError(t, err)

	env.clock.Advance(time.Minute + time.Second)

	// Same IP: silent rotation.
	_, bearer, err = env.manager.Authenticate(ctx, bearer, testFingerprint)
	require.NoError(t, err)

	env.clock.Advance(time.Minute + time.Second)

	roamed := models.Fingerprint{IP: "10.0.0.2", UserAgent: "X"}
	_, _, err = env.manager.Authenticate(ctx, bearer, roamed)
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.changes, 1)
	require.Equal(t, service.IPChange{
		OwnerID:   "u1",
		OldIP:     "10.0.0.1",
		NewIP:     "10.0.0.2",
		UserAgent: "X",
	}, notifier.changes[0])
}
