package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Shortly/internal/auth/password"
	"github.com/NordCoder/Shortly/internal/auth/token"
	domainauth "github.com/NordCoder/Shortly/internal/domain/auth"
	"github.com/NordCoder/Shortly/internal/domain/outbox"
	"github.com/NordCoder/Shortly/internal/domain/user"
	"github.com/NordCoder/Shortly/internal/repository/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	testAccessSecret  = []byte("test-access-secret-0123456789-abcdef")
	testRefreshSecret = []byte("test-refresh-secret-0123456789-abcdef")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memTx records undo steps; Begin opens a savepoint whose steps fold into
// the parent on Commit.
type memTx struct {
	pgx.Tx
	parent *memTx
	undo   []func()
	closed bool
}

func (t *memTx) Begin(context.Context) (pgx.Tx, error) {
	return &memTx{parent: t}, nil
}

func (t *memTx) Commit(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.parent != nil {
		t.parent.undo = append(t.parent.undo, t.undo...)
	}
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	return nil
}

func onUndo(tx pgx.Tx, fn func()) {
	if mt, ok := tx.(*memTx); ok {
		mt.undo = append(mt.undo, fn)
	}
}

// memStore is an in-memory database. Transactions are serialised, which is
// stricter than the row locks Postgres takes on DELETE.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	users    map[int64]*user.User
	nextUser int64
	sessions map[string]domainauth.Session
	outbox   []outbox.Message

	failDelete  error
	failEnqueue error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*user.User{},
		sessions: map[string]domainauth.Session{},
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()
	return fn(ctx, tx)
}

func (s *memStore) Create(_ context.Context, tx pgx.Tx, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return postgres.ErrConflict
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.users[u.ID] = &cp
	id := u.ID
	onUndo(tx, func() {
		s.mu.Lock()
		delete(s.users, id)
		s.mu.Unlock()
	})
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

// sessions lives on a separate type so memStore can satisfy both user.Repo
// and SessionStore despite the shared Create name.
type memSessions struct{ s *memStore }

func (m memSessions) Create(_ context.Context, tx pgx.Tx, sess *domainauth.Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, dup := m.s.sessions[sess.JTI]; dup {
		return postgres.ErrConflict
	}
	m.s.sessions[sess.JTI] = *sess
	jti := sess.JTI
	onUndo(tx, func() {
		m.s.mu.Lock()
		delete(m.s.sessions, jti)
		m.s.mu.Unlock()
	})
	return nil
}

func (m memSessions) DeleteByJTI(_ context.Context, tx pgx.Tx, jti string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failDelete != nil {
		return false, m.s.failDelete
	}
	old, ok := m.s.sessions[jti]
	if !ok {
		return false, nil
	}
	delete(m.s.sessions, jti)
	onUndo(tx, func() {
		m.s.mu.Lock()
		m.s.sessions[jti] = old
		m.s.mu.Unlock()
	})
	return true, nil
}

func (m memSessions) DeleteAllForUser(_ context.Context, tx pgx.Tx, userID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var removed []domainauth.Session
	for jti, sess := range m.s.sessions {
		if sess.UserID == userID {
			removed = append(removed, sess)
			delete(m.s.sessions, jti)
		}
	}
	onUndo(tx, func() {
		m.s.mu.Lock()
		for _, sess := range removed {
			m.s.sessions[sess.JTI] = sess
		}
		m.s.mu.Unlock()
	})
	return int64(len(removed)), nil
}

func (m memSessions) CountForUser(_ context.Context, userID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, sess := range m.s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memOutbox struct{ s *memStore }

func (o memOutbox) Enqueue(_ context.Context, tx pgx.Tx, key string, kind outbox.Kind, data []byte) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if o.s.failEnqueue != nil {
		return o.s.failEnqueue
	}
	o.s.outbox = append(o.s.outbox, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data})
	n := len(o.s.outbox)
	onUndo(tx, func() {
		o.s.mu.Lock()
		o.s.outbox = o.s.outbox[:n-1]
		o.s.mu.Unlock()
	})
	return nil
}

func (o memOutbox) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	return nil, errors.New("not used")
}

func (o memOutbox) MarkSuccess(context.Context, []string) error { return nil }

func (s *memStore) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *memStore) session(jti string) (domainauth.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[jti]
	return sess, ok
}

func (s *memStore) outboxKinds() []outbox.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Kind, 0, len(s.outbox))
	for _, m := range s.outbox {
		out = append(out, m.Kind)
	}
	return out
}

type harness struct {
	uc     *Usecase
	tokens *TokenService
	codec  *token.Codec
	store  *memStore
	clock  *fakeClock
	reg    *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Leeway:        token.DefaultLeeway,
		Now:           clk.Now,
	})
	require.NoError(t, err)

	hasher, err := password.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	store := newMemStore()
	sessions := memSessions{s: store}
	tokens := NewTokenService(codec, sessions, TokenConfig{Now: clk.Now})
	reg := prometheus.NewRegistry()

	uc := NewUseCase(Deps{
		Logger:   zap.NewNop(),
		Tx:       store,
		Users:    store,
		Sessions: sessions,
		Tokens:   tokens,
		Hasher:   hasher,
		Outbox:   memOutbox{s: store},
		Metrics:  NewMetrics(reg),
		Now:      clk.Now,
	})
	return &harness{uc: uc, tokens: tokens, codec: codec, store: store, clock: clk, reg: reg}
}

func (h *harness) jti(t *testing.T, refresh string) string {
	t.Helper()
	v := h.codec.VerifyRefresh(refresh, token.IgnoreExpiration())
	require.True(t, v.Valid())
	return v.Claims.JTI
}

func (h *harness) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := h.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
