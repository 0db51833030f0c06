package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/notify"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/store"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-crud-api/internal/user/repo"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("incorrect username or password")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUsernameTaken  = errors.New("username already registered")
	ErrInvalidUser    = errors.New("invalid user")
)

// UserService orchestrates registration, login and bearer resolution.
type UserService struct {
	repo     *userrepo.UserRepo
	tokens   *auth.TokenService
	notifier notify.Notifier
	logger   *zap.SugaredLogger

	// NotifyTimeout bounds each background welcome notification.
	NotifyTimeout time.Duration
	wg            sync.WaitGroup
}

func NewUserService(r *userrepo.UserRepo, tokens *auth.TokenService, n notify.Notifier, logger *zap.SugaredLogger) *UserService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if n == nil {
		n = notify.NewLogNotifier(logger, "")
	}
	return &UserService{repo: r, tokens: tokens, notifier: n, logger: logger, NotifyTimeout: 30 * time.Second}
}

// Register creates the account and queues the welcome notification. The
// email is checked up front so the two duplicate cases report differently.
func (s *UserService) Register(ctx context.Context, in entity.UserCreate) (*entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidUser)
	}
	if len(in.Username) > 100 || len(in.Email) > 100 {
		return nil, fmt.Errorf("%w: username and email are limited to 100 bytes", ErrInvalidUser)
	}
	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	u, err := s.repo.Register(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConstraintViolation):
			return nil, ErrUsernameTaken
		case errors.Is(err, auth.ErrPasswordTooLong):
			return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
		}
		return nil, err
	}
	s.welcome(ctx, u.Email)
	return u, nil
}

func (s *UserService) welcome(ctx context.Context, email string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Welcome(ctx, email); err != nil {
			s.logger.Warnw("welcome notification failed", "to", email, "err", err)
		}
	}()
}

// Wait blocks until queued notifications have finished.
func (s *UserService) Wait() { s.wg.Wait() }

// Login checks the credentials and issues an access token for the user.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, ok, err := s.repo.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrBadCredentials
	}
	return s.tokens.Issue(map[string]any{"sub": u.Username}, s.tokens.TTL())
}

// ResolveBearer maps a token to the active user it was issued for.
func (s *UserService) ResolveBearer(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	sub := claims.Subject()
	if sub == "" {
		return nil, auth.ErrMalformed
	}
	u, err := s.repo.FindByUsername(ctx, sub)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, auth.ErrUnknownSubject
	}
	if !u.IsActive {
		return nil, auth.ErrInactive
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, skip, limit int) ([]entity.User, error) {
	return s.repo.List(ctx, skip, limit)
}

// ChangePassword replaces the password of u. Tokens issued before the change
// stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, u entity.User, password string) (*entity.User, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidUser)
	}
	updated, err := s.repo.ChangePassword(ctx, u, password)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, auth.ErrPasswordTooLong):
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return updated, err
}

// Delete removes the user and, through the schema, their items.
func (s *UserService) Delete(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
