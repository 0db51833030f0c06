package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/store"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user/entity"
)

var usersTable = store.Table{
	Name:       "users",
	Columns:    []string{"id", "username", "email", "hashed_password", "is_active"},
	Insertable: []string{"username", "email", "hashed_password"},
	Updatable:  []string{"username", "email", "hashed_password", "is_active"},
}

// UserRepo provides data access for the users table.
type UserRepo struct {
	store  *store.Store[entity.User, entity.UserCreate, entity.UserUpdate]
	hasher auth.PasswordHasher
	logger *zap.SugaredLogger
	dummy  func() (string, error)
}

func NewUserRepo(db *sqlx.DB, hasher auth.PasswordHasher, logger *zap.SugaredLogger) *UserRepo {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserRepo{
		store:  store.New[entity.User, entity.UserCreate, entity.UserUpdate](db, usersTable),
		hasher: hasher,
		logger: logger,
		dummy: sync.OnceValues(func() (string, error) {
			return hasher.Hash("dummy password for unknown users")
		}),
	}
}

// Get returns nil when no user has the id.
func (r *UserRepo) Get(ctx context.Context, id int64) (*entity.User, error) {
	return r.store.Get(ctx, id)
}

func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]entity.User, error) {
	return r.store.List(ctx, skip, limit)
}

// Update applies a partial update. Password in u is ignored; use ChangePassword.
func (r *UserRepo) Update(ctx context.Context, existing entity.User, u entity.UserUpdate) (*entity.User, error) {
	u.Password = nil
	u.HashedPassword = nil
	return r.store.Update(ctx, existing, u)
}

// Delete removes the user; the schema cascades to their items.
func (r *UserRepo) Delete(ctx context.Context, id int64) (*entity.User, error) {
	return r.store.Delete(ctx, id)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.store.FindBy(ctx, "username", username)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.store.FindBy(ctx, "email", email)
}

// Register hashes the plaintext password and inserts the user. A taken
// username or email surfaces as store.ErrConstraintViolation.
func (r *UserRepo) Register(ctx context.Context, in entity.UserCreate) (*entity.User, error) {
	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	in.Password = ""
	in.HashedPassword = hash
	return r.store.Create(ctx, in)
}

// ChangePassword replaces the password hash and nothing else.
func (r *UserRepo) ChangePassword(ctx context.Context, u entity.User, plaintext string) (*entity.User, error) {
	hash, err := r.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return r.store.Update(ctx, u, entity.UserUpdate{HashedPassword: &hash})
}

// Authenticate reports whether username and password match a stored user.
// Unknown users and wrong passwords both yield false; an unknown user still
// pays for one hash comparison. A failed rehash is logged and the login
// still succeeds with the old hash in place.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (*entity.User, bool, error) {
	u, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		if dummy, err := r.dummy(); err == nil {
			r.hasher.Verify(dummy, password)
		}
		return nil, false, nil
	}
	if !r.hasher.Verify(u.HashedPassword, password) {
		return nil, false, nil
	}
	if r.hasher.NeedsRehash(u.HashedPassword) {
		updated, err := r.ChangePassword(ctx, *u, password)
		if err != nil {
			r.logger.Warnw("password rehash failed", "user_id", u.ID, "err", err)
		} else {
			u = updated
		}
	}
	return u, true, nil
}
