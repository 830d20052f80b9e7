package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/dbx"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/users"
)

// -------- test fakes --------

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memUsersRepo is an in-memory users.Repository with the same uniqueness
// rules as the users table.
type memUsersRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	calls int

	// attempts counts wrong verification codes per user id.
	attempts map[string]int

	// err, when set, is returned by every method.
	err error
}

func newMemUsersRepo(seed ...*models.User) *memUsersRepo {
	r := &memUsersRepo{byID: map[string]*models.User{}, attempts: map[string]int{}}
	for _, u := range seed {
		cp := *u
		r.byID[u.ID] = &cp
	}
	return r
}

func (r *memUsersRepo) begin() error {
	r.mu.Lock()
	r.calls++
	return r.err
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return nil, err
	}
	for _, x := range r.byID {
		if x.UserName == u.UserName || x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return nil, err
	}
	for _, x := range r.byID {
		if match(x) {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *memUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.UserName == username })
}

func (r *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memUsersRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return nil, err
	}
	out := []*models.User{}
	for _, x := range r.byID {
		cp := *x
		out = append(out, &cp)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return nil, err
	}
	if _, ok := r.byID[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	for id, x := range r.byID {
		if id != u.ID && (x.UserName == u.UserName || x.Email == u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.UpdatedAt = time.Now()
	r.byID[u.ID] = &cp
	if cp.VerificationCode == "" {
		delete(r.attempts, u.ID)
	}
	out := cp
	return &out, nil
}

func (r *memUsersRepo) Delete(ctx context.Context, id string) error {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return err
	}
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memUsersRepo) RecordFailedVerification(ctx context.Context, id string, maxAttempts int) (int, error) {
	defer r.mu.Unlock()
	if err := r.begin(); err != nil {
		return 0, err
	}
	u, ok := r.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	r.attempts[id]++
	n := r.attempts[id]
	if n >= maxAttempts {
		u.VerificationCode = ""
		u.VerificationExpiresAt = time.Time{}
	}
	return n, nil
}

func (r *memUsersRepo) stored(id string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// blockingUsersRepo never answers before the context is done.
type blockingUsersRepo struct {
	users.Repository
}

func (blockingUsersRepo) GetByUsername(ctx context.Context, _ string) (*models.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingUsersRepo) GetByID(ctx context.Context, _ string) (*models.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeRepoManager struct {
	users users.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }

// countingHasher records how many comparisons were made.
type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.PasswordHasher.Verify(password, hash)
}

type recordingMailer struct {
	to, code string
	expires  time.Time
	err      error

	// deadline is the send context's deadline, zero when it had none.
	deadline time.Time
}

func (m *recordingMailer) SendVerificationCode(ctx context.Context, to, code string, expires time.Time) error {
	m.to, m.code, m.expires = to, code, expires
	m.deadline, _ = ctx.Deadline()
	return m.err
}

func (m *recordingMailer) Enabled() bool { return true }
