package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

const defaultBearerTTL = 15 * time.Minute

// OwnerResolver turns the owner_id claim of a bearer token back into an
// owner. Implementations must wrap ErrOwnerNotFound when the id no longer
// resolves; any other error is treated as infrastructure failure.
type OwnerResolver[O any] interface {
	ResolveOwner(ctx context.Context, ownerID string) (O, error)
}

// BearerDenylist optionally revokes bearer tokens before their natural
// expiry. A nil denylist keeps the authenticate fast path store-free.
type BearerDenylist interface {
	DenyToken(ctx context.Context, token string, ttl time.Duration) error
	IsTokenDenied(ctx context.Context, token string) (bool, error)
}

// Notifier observes fingerprint changes applied during rotation.
type Notifier interface {
	NotifyIPChange(ctx context.Context, change IPChange)
}

type IPChange struct {
	OwnerID   string `json:"owner_id"`
	OldIP     string `json:"old_ip"`
	NewIP     string `json:"new_ip"`
	UserAgent string `json:"user_agent"`
}

// Config is the immutable per-owner-type session policy.
type Config[O any] struct {
	// OwnerType tags stored signins, so several owner types can share one
	// signins table.
	OwnerType string

	// OwnerID extracts the identifier embedded in bearer-token claims.
	OwnerID func(owner O) string

	// Secret signs bearer tokens.
	Secret []byte

	// RefreshTTL is the session lifetime, extended on each rotation.
	// Zero means sessions never expire on their own.
	RefreshTTL time.Duration

	// RefreshTTLFunc, when set, computes the lifetime per owner and takes
	// precedence over RefreshTTL.
	RefreshTTLFunc func(owner O) time.Duration

	// BearerTTL is the short bearer-token lifetime. Defaults to 15 minutes.
	BearerTTL time.Duration

	// SingleSession, when set, expires all other active signins of an owner
	// on each new signin.
	SingleSession bool

	// Restrictions computes the fingerprint fields pinned for an owner.
	Restrictions RestrictionsFunc[O]
}

// Manager drives the signin lifecycle: issuance, bearer validation with
// refresh-token rotation, and signout. All session state lives in the store;
// the manager itself is safe for concurrent use.
type Manager[O any] struct {
	cfg      Config[O]
	tokens   *TokenIssuer
	store    storage.SigninRepository
	owners   OwnerResolver[O]
	policy   *RestrictionPolicy[O]
	denylist BearerDenylist
	notifier Notifier
	clock    Clock
	log      *zap.SugaredLogger
}

type ManagerOption[O any] func(*Manager[O])

func WithClock[O any](clock Clock) ManagerOption[O] {
	return func(m *Manager[O]) { m.clock = clock }
}

func WithDenylist[O any](denylist BearerDenylist) ManagerOption[O] {
	return func(m *Manager[O]) { m.denylist = denylist }
}

func WithNotifier[O any](notifier Notifier) ManagerOption[O] {
	return func(m *Manager[O]) { m.notifier = notifier }
}

func WithLogger[O any](log *zap.SugaredLogger) ManagerOption[O] {
	return func(m *Manager[O]) { m.log = log }
}

func NewManager[O any](cfg Config[O], store storage.SigninRepository, owners OwnerResolver[O], opts ...ManagerOption[O]) (*Manager[O], error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("manager config: secret is required")
	}
	if cfg.OwnerID == nil {
		return nil, errors.New("manager config: owner id extractor is required")
	}
	if cfg.BearerTTL <= 0 {
		cfg.BearerTTL = defaultBearerTTL
	}

	m := &Manager[O]{
		cfg:    cfg,
		store:  store,
		owners: owners,
		policy: NewRestrictionPolicy(cfg.Restrictions),
		clock:  SystemClock(),
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tokens = NewTokenIssuer(cfg.Secret, m.clock)

	return m, nil
}

// Signin creates a session for an already-authenticated owner and returns the
// bearer token to hand to the client. The fingerprint is stored verbatim.
func (m *Manager[O]) Signin(ctx context.Context, owner O, fp models.Fingerprint, customData map[string]any) (string, error) {
	now := m.clock.Now()
	ownerID := m.cfg.OwnerID(owner)

	if m.cfg.SingleSession {
		if err := m.expireActiveSignins(ctx, ownerID, now); err != nil {
			return "", err
		}
	}

	token, err := m.tokens.IssueRefreshToken()
	if err != nil {
		return "", fmt.Errorf("issue refresh token: %w", err)
	}

	signin := &models.Signin{
		OwnerType:      m.cfg.OwnerType,
		OwnerID:        ownerID,
		Token:          token,
		IP:             fp.IP,
		UserAgent:      fp.UserAgent,
		Referer:        fp.Referer,
		ExpirationTime: m.expirationTime(owner, now),
		CustomData:     customData,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.CreateSignin(ctx, signin); err != nil {
		return "", fmt.Errorf("create signin: %w", err)
	}
	m.log.Debugw("signin created", "ownerID", ownerID, "signinID", signin.ID)

	return m.tokens.IssueBearerToken(token, ownerID, m.cfg.BearerTTL)
}

// Authenticate validates a bearer token. While the bearer is fresh this is
// pure claim verification with no store access. Once the bearer has expired
// the embedded refresh token is rotated; any failure along the way collapses
// into ErrNotAuthenticated.
func (m *Manager[O]) Authenticate(ctx context.Context, bearerToken string, fp models.Fingerprint) (O, string, error) {
	var zero O

	if m.denylist != nil {
		denied, err := m.denylist.IsTokenDenied(ctx, bearerToken)
		if err != nil {
			return zero, "", fmt.Errorf("check bearer denylist: %w", err)
		}
		if denied {
			return zero, "", notAuthenticated(ErrBearerRevoked)
		}
	}

	claims, err := m.tokens.Decode(bearerToken, true)
	switch {
	case err == nil:
		owner, err := m.resolveOwner(ctx, claims.OwnerID)
		if err != nil {
			return zero, "", err
		}
		return owner, bearerToken, nil
	case errors.Is(err, ErrBearerExpired):
		return m.refreshBearer(ctx, bearerToken, fp)
	default:
		return zero, "", notAuthenticated(err)
	}
}

// refreshBearer rotates the refresh token inside an expired-but-authentic
// bearer token. The conditional store update makes each stale token usable at
// most once: of N concurrent callers exactly one wins, the rest observe a
// rotation conflict and must re-authenticate.
func (m *Manager[O]) refreshBearer(ctx context.Context, bearerToken string, fp models.Fingerprint) (O, string, error) {
	var zero O

	claims, err := m.tokens.Decode(bearerToken, false)
	if err != nil {
		return zero, "", notAuthenticated(err)
	}
	now := m.clock.Now()

	signin, err := m.store.GetSigninByToken(ctx, claims.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrSigninNotFound) {
			return zero, "", notAuthenticated(err)
		}
		return zero, "", fmt.Errorf("find signin: %w", err)
	}
	if !signin.Active(now) {
		return zero, "", notAuthenticated(ErrSigninExpired)
	}

	owner, err := m.resolveOwner(ctx, claims.OwnerID)
	if err != nil {
		return zero, "", err
	}
	if !m.policy.IsPermitted(owner, signin, fp, nil) {
		return zero, "", notAuthenticated(ErrRestrictionViolated)
	}

	newToken, err := m.tokens.IssueRefreshToken()
	if err != nil {
		return zero, "", fmt.Errorf("issue refresh token: %w", err)
	}
	upd := models.SigninUpdate{
		Token:          newToken,
		IP:             fp.IP,
		UserAgent:      fp.UserAgent,
		ExpirationTime: m.renewalTime(owner, signin, now),
		UpdatedAt:      now,
	}
	if err := m.store.RotateSignin(ctx, signin.ID, claims.RefreshToken, upd); err != nil {
		if errors.Is(err, storage.ErrRotationConflict) || errors.Is(err, storage.ErrSigninNotFound) {
			return zero, "", notAuthenticated(err)
		}
		return zero, "", fmt.Errorf("rotate signin: %w", err)
	}
	m.log.Debugw("signin rotated", "signinID", signin.ID, "ownerID", claims.OwnerID)

	if m.notifier != nil && signin.IP != fp.IP {
		m.notifier.NotifyIPChange(ctx, IPChange{
			OwnerID:   claims.OwnerID,
			OldIP:     signin.IP,
			NewIP:     fp.IP,
			UserAgent: fp.UserAgent,
		})
	}

	newBearer, err := m.tokens.IssueBearerToken(newToken, claims.OwnerID, m.cfg.BearerTTL)
	if err != nil {
		return zero, "", err
	}
	return owner, newBearer, nil
}

// Signout expires the session behind a bearer token. The bearer's own
// expiration is irrelevant, only its signature is checked. Signing out an
// absent or already-expired session reports ErrNothingToSignout.
func (m *Manager[O]) Signout(ctx context.Context, bearerToken string, fp models.Fingerprint) error {
	claims, err := m.tokens.Decode(bearerToken, false)
	if err != nil {
		return err
	}
	now := m.clock.Now()

	signin, err := m.store.GetSigninByToken(ctx, claims.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrSigninNotFound) {
			return ErrNothingToSignout
		}
		return fmt.Errorf("find signin: %w", err)
	}
	if !signin.Active(now) {
		return ErrNothingToSignout
	}

	if m.cfg.Restrictions != nil {
		owner, err := m.resolveOwner(ctx, claims.OwnerID)
		if err != nil {
			return err
		}
		if !m.policy.IsPermitted(owner, signin, fp, nil) {
			return ErrRestrictionViolated
		}
	}

	// The terminating request's fingerprint is kept as an audit trail.
	upd := models.SigninUpdate{
		IP:             fp.IP,
		UserAgent:      fp.UserAgent,
		ExpirationTime: &now,
		UpdatedAt:      now,
	}
	if err := m.store.UpdateSignin(ctx, signin.ID, upd); err != nil {
		return fmt.Errorf("expire signin: %w", err)
	}
	m.log.Debugw("signin expired", "signinID", signin.ID, "ownerID", signin.OwnerID)

	if m.denylist != nil && claims.ExpiresAt != nil {
		if err := m.denylist.DenyToken(ctx, bearerToken, claims.ExpiresAt.Time.Sub(now)); err != nil {
			return fmt.Errorf("deny bearer token: %w", err)
		}
	}

	return nil
}

// LastSignin returns the owner's most recently created active signin.
func (m *Manager[O]) LastSignin(ctx context.Context, owner O) (*models.Signin, error) {
	active, err := m.store.GetActiveSignins(ctx, m.cfg.OwnerType, m.cfg.OwnerID(owner), m.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("get active signins: %w", err)
	}
	if len(active) == 0 {
		return nil, storage.ErrSigninNotFound
	}

	last := &active[0]
	for i := range active {
		if active[i].CreatedAt.After(last.CreatedAt) {
			last = &active[i]
		}
	}
	found := *last
	return &found, nil
}

func (m *Manager[O]) expireActiveSignins(ctx context.Context, ownerID string, now time.Time) error {
	active, err := m.store.GetActiveSignins(ctx, m.cfg.OwnerType, ownerID, now)
	if err != nil {
		return fmt.Errorf("get active signins: %w", err)
	}
	for i := range active {
		expireAt := now
		upd := models.SigninUpdate{ExpirationTime: &expireAt, UpdatedAt: now}
		if err := m.store.UpdateSignin(ctx, active[i].ID, upd); err != nil {
			return fmt.Errorf("expire signin %s: %w", active[i].ID, err)
		}
	}
	return nil
}

func (m *Manager[O]) resolveOwner(ctx context.Context, ownerID string) (O, error) {
	owner, err := m.owners.ResolveOwner(ctx, ownerID)
	if err != nil {
		var zero O
		if errors.Is(err, ErrOwnerNotFound) || errors.Is(err, storage.ErrUserNotFound) {
			return zero, notAuthenticated(fmt.Errorf("%w: %w", ErrOwnerNotFound, err))
		}
		return zero, fmt.Errorf("resolve owner %s: %w", ownerID, err)
	}
	return owner, nil
}

func (m *Manager[O]) refreshTTL(owner O) time.Duration {
	if m.cfg.RefreshTTLFunc != nil {
		return m.cfg.RefreshTTLFunc(owner)
	}
	return m.cfg.RefreshTTL
}

// expirationTime computes the initial expiration; zero TTL means the session
// never expires.
func (m *Manager[O]) expirationTime(owner O, now time.Time) *time.Time {
	ttl := m.refreshTTL(owner)
	if ttl == 0 {
		return nil
	}
	t := now.Add(ttl)
	return &t
}

// renewalTime extends an expireable session from the rotation instant; a
// non-expireable session stays non-expireable no matter the configured TTL.
func (m *Manager[O]) renewalTime(owner O, signin *models.Signin, now time.Time) *time.Time {
	if !signin.Expireable() {
		return nil
	}
	t := now.Add(m.refreshTTL(owner))
	return &t
}
