package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-stateless-auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

func newTokens(t *testing.T, clock *fakeClock, opts ...auth.TokenServiceOption) *auth.TokenService {
	t.Helper()
	opts = append([]auth.TokenServiceOption{
		auth.WithTokenClock(clock.Now),
		auth.WithTokenLogger(silentLogger{}),
	}, opts...)
	ts, err := auth.NewTokenService(testSecret, opts...)
	require.NoError(t, err)
	return ts
}

var dbCounter atomic.Int64

// newTestDB opens a private in-memory sqlite database with the accounts table.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:auth_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.Migrate(context.Background(), db))
	return db
}

type fixture struct {
	clock   *fakeClock
	db      *bun.DB
	store   auth.AccountStore
	tokens  *auth.TokenService
	codes   *auth.VerificationCodeIssuer
	service *auth.AccountService
	gate    *auth.AuthenticationGate
	events  *activityLog
}

type activityLog struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (l *activityLog) Record(_ context.Context, event auth.ActivityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *activityLog) Types() []auth.ActivityEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

func newFixture(t *testing.T, opts ...auth.AccountServiceOption) *fixture {
	t.Helper()

	f := &fixture{
		clock:  newFakeClock(),
		db:     newTestDB(t),
		events: &activityLog{},
	}
	f.store = auth.NewAccountStore(f.db, auth.WithAccountsClock(f.clock.Now))
	f.tokens = newTokens(t, f.clock)
	f.codes = auth.NewVerificationCodeIssuer(f.tokens, auth.WithVerificationLogger(silentLogger{}))

	opts = append([]auth.AccountServiceOption{
		auth.WithServiceClock(f.clock.Now),
		auth.WithServiceLogger(silentLogger{}),
		auth.WithActivitySink(f.events),
	}, opts...)

	f.service = auth.NewAccountService(f.store, f.tokens, f.codes, auth.NewBcryptHasher(4), opts...)
	f.gate = auth.NewAuthenticationGate(f.tokens, f.store, auth.WithGateLogger(silentLogger{}))
	return f
}

func (f *fixture) signup(t *testing.T, email string) *auth.Outcome {
	t.Helper()
	out, err := f.service.Signup(context.Background(), auth.SignupRequest{
		Email:    email,
		Password: "secret-password",
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) principal(t *testing.T, token string) *auth.Principal {
	t.Helper()
	authn, err := f.gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	require.True(t, authn.IsAuthenticated())
	return authn.Principal
}

// admin creates a verified admin and returns its auth token.
func (f *fixture) admin(t *testing.T, email string) (*auth.Account, string) {
	t.Helper()
	account, created, err := f.service.EnsureAdmin(context.Background(), email, "admin-password")
	require.NoError(t, err)
	require.True(t, created)
	token, err := f.service.AuthToken(account)
	require.NoError(t, err)
	return account, token
}
