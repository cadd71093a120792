package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/mail"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/storage"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const (
	maxCodeAttempts = 5
	rollbackTimeout = 5 * time.Second
)

// AuthService coordinates registration, login and the password reset flow.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.Hasher
	tokens     *auth.TokenManager
	codes      *auth.ResetCodeHasher
	mailer     mail.Mailer
	avatars    *AvatarStore
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	resetTTL    time.Duration
	mailTimeout time.Duration
	dummyHash   string

	now     func() time.Time
	newCode func() (string, error)
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Users      repository.UserRepository
	Mailer     mail.Mailer
	Store      storage.ObjectStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service. The signing secret is read once here.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		users:       deps.Users,
		hasher:      hasher,
		tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		codes:       auth.NewResetCodeHasher(cfg.Auth.ResetCodeSecret),
		mailer:      deps.Mailer,
		avatars:     NewAvatarStore(deps.Store, logger),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		resetTTL:    cfg.Auth.ResetCodeTTL,
		mailTimeout: cfg.Mail.SendTimeout,
		dummyHash:   dummy,
		now:         time.Now,
		newCode:     auth.GenerateResetCode,
	}, nil
}

// RegisterInput carries a self-service signup.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Avatar    *Upload
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, domain.Token, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.Token{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Token{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Token{}, err
	}

	avatar, err := s.avatars.Save(ctx, in.Avatar)
	if err != nil {
		return nil, domain.Token{}, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Avatar:       avatar,
	}
	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		s.avatars.Remove(ctx, avatar)
		return nil, domain.Token{}, err
	}
	user.Token = &token.Value

	if err := s.users.Create(ctx, user); err != nil {
		s.avatars.Remove(ctx, avatar)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Token{}, ErrEmailTaken
		}
		return nil, domain.Token{}, err
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, userPayload(user)))
	return user, token, nil
}

// Login verifies credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Token{}, err
		}
		// burn the same bcrypt time as a real comparison
		s.hasher.Verify(password, s.dummyHash)
		s.metrics.RecordLogin(false)
		return nil, domain.Token{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.RecordLogin(false)
		return nil, domain.Token{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, domain.Token{}, err
	}
	if err := s.users.UpdateToken(ctx, user.ID, token.Value); err != nil {
		return nil, domain.Token{}, err
	}
	user.Token = &token.Value
	s.metrics.RecordLogin(true)
	return user, token, nil
}

// RequestPasswordReset issues a fresh code, replacing any pending one, and mails it.
// When the mail cannot be delivered the code is withdrawn again.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	code, digest, err := s.uniqueCode(ctx)
	if err != nil {
		return err
	}
	if err := s.users.SetResetCode(ctx, user.ID, digest, s.now().Add(s.resetTTL)); err != nil {
		return err
	}
	s.metrics.RecordReset(observability.ResetRequested)

	sendCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, resetCodeMessage(user, code, s.resetTTL)); err != nil {
		s.metrics.RecordReset(observability.ResetDeliveryFailed)
		s.rollbackReset(ctx, user.ID, digest)
		return apperrors.NewDeliveryFailed(err)
	}
	return nil
}

// VerifyResetCode marks the account holding a live matching code as verified.
func (s *AuthService) VerifyResetCode(ctx context.Context, code string) error {
	if _, err := s.users.MarkResetVerified(ctx, s.codes.Hash(code), s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}
	s.metrics.RecordReset(observability.ResetVerified)
	return nil
}

// ResetPassword replaces the password of a verified account and returns a fresh token.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) (domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Token{}, ErrUserNotFound
		}
		return domain.Token{}, err
	}
	if !user.PasswordResetVerified {
		return domain.Token{}, ErrNotVerified
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.Token{}, err
	}
	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return domain.Token{}, err
	}

	// verification is re-checked atomically; a concurrent request may have reset it
	if err := s.users.CompleteReset(ctx, user.ID, hash, token.Value); err != nil {
		if errors.Is(err, repository.ErrStateMismatch) {
			return domain.Token{}, ErrNotVerified
		}
		return domain.Token{}, err
	}
	s.metrics.RecordReset(observability.ResetCompleted)
	s.publish(ctx, events.New(events.EventPasswordChanged, user.ID, userPayload(user)))
	return token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// uniqueCode draws codes until one is not live for another account, so a verified code
// always identifies a single user.
func (s *AuthService) uniqueCode(ctx context.Context) (string, string, error) {
	for range maxCodeAttempts {
		code, err := s.newCode()
		if err != nil {
			return "", "", err
		}
		digest := s.codes.Hash(code)
		inUse, err := s.users.ResetCodeInUse(ctx, digest, s.now())
		if err != nil {
			return "", "", err
		}
		if !inUse {
			return code, digest, nil
		}
	}
	return "", "", errors.New("could not allocate a unique reset code")
}

func (s *AuthService) rollbackReset(ctx context.Context, userID, digest string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := s.users.ClearResetState(ctx, userID, digest); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("rollback reset code after failed delivery", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func resetCodeMessage(user *domain.User, code string, ttl time.Duration) mail.Message {
	return mail.Message{
		To:      user.Email,
		Subject: "Your password reset code",
		Body: fmt.Sprintf("Hi %s,\n\nWe received a request to reset the password on your account.\n\n%s\n\n"+
			"Enter this code to complete the reset. It expires in %d minutes.\n",
			user.FirstName, code, int(ttl.Minutes())),
	}
}

func userPayload(u *domain.User) events.UserPayload {
	return events.UserPayload{UserID: u.ID, Email: u.Email, FirstName: u.FirstName}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
