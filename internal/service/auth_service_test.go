package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/storage"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const resetTTL = 10 * time.Minute

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type authFixture struct {
	svc        *AuthService
	users      *memUsers
	mailer     *recordingMailer
	store      storage.ObjectStore
	dispatcher events.Dispatcher
	codes      *auth.ResetCodeHasher

	mu     sync.Mutex
	clock  time.Time
	events []events.Event
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			ResetCodeTTL:          resetTTL,
			ResetCodeSecret:       "code-secret",
			BcryptCost:            bcrypt.MinCost,
		},
		Mail: config.MailConfig{SendTimeout: 200 * time.Millisecond},
	}

	f := &authFixture{
		users:      newMemUsers(),
		mailer:     &recordingMailer{},
		store:      store,
		dispatcher: events.NewInMemoryDispatcher(),
		codes:      auth.NewResetCodeHasher(cfg.Auth.ResetCodeSecret),
		clock:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := NewAuthService(cfg, AuthDependencies{
		Users:      f.users,
		Mailer:     f.mailer,
		Store:      store,
		Dispatcher: f.dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	svc.now = f.now
	f.svc = svc

	record := func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}
	f.dispatcher.Subscribe(events.EventUserRegistered, record)
	f.dispatcher.Subscribe(events.EventPasswordChanged, record)
	return f
}

func (f *authFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *authFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

// useCodes makes the service hand out the given codes in order.
func (f *authFixture) useCodes(codes ...string) {
	f.svc.newCode = func() (string, error) {
		if len(codes) == 0 {
			return "", errors.New("no more codes")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func (f *authFixture) register(t *testing.T, email, password string) *domain.User {
	t.Helper()
	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Sara",
		LastName:  "Kim",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return user
}

func (f *authFixture) stored(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, token, err := f.svc.Register(ctx, RegisterInput{
		FirstName: " Sara ",
		LastName:  "Kim",
		Email:     " Sara@Example.com ",
		Password:  "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "sara@example.com", user.Email)
	assert.Equal(t, "Sara", user.FirstName)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.DefaultAvatar, user.Avatar)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	claims, err := f.svc.TokenManager().Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	stored := f.stored(t, user.ID)
	require.NotNil(t, stored.Token)
	assert.Equal(t, token.Value, *stored.Token)

	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventUserRegistered, f.events[0].Type)

	_, _, err = f.svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "SARA@example.com", Password: "other-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "ALREADY_EXISTS", apperrors.ToDomainError(err).Code)
}

func TestRegister_Avatar(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, RegisterInput{
		FirstName: "Sara", LastName: "Kim", Email: "sara@example.com", Password: "secret123",
		Avatar: &Upload{Reader: bytes.NewReader(pngHeader), Size: int64(len(pngHeader))},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^user-\d+-[0-9a-f]{8}\.png$`, user.Avatar)

	obj, err := f.store.Open(ctx, avatarPrefix+user.Avatar)
	require.NoError(t, err)
	obj.Body.Close()

	_, _, err = f.svc.Register(ctx, RegisterInput{
		FirstName: "Eve", LastName: "Doe", Email: "eve@example.com", Password: "secret123",
		Avatar: &Upload{Reader: bytes.NewReader([]byte("plain text, not a picture"))},
	})
	assert.ErrorIs(t, err, ErrAvatarNotImage)
	_, err = f.users.GetByEmail(ctx, "eve@example.com")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	registered := f.register(t, "sara@example.com", "secret123")

	user, token, err := f.svc.Login(ctx, "SARA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, token.Value, *f.stored(t, user.ID).Token)

	_, _, wrongPassword := f.svc.Login(ctx, "sara@example.com", "nope-nope")
	_, _, unknownEmail := f.svc.Login(ctx, "ghost@example.com", "secret123")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestPasswordReset_HappyPath(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "sara@example.com", "old-password")
	f.useCodes("482913")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	msg := f.mailer.last()
	assert.Equal(t, "sara@example.com", msg.To)
	assert.Contains(t, msg.Body, "482913")
	assert.Equal(t, domain.ResetStateIssued, f.stored(t, user.ID).ResetState())
	assert.Equal(t, f.codes.Hash("482913"), *f.stored(t, user.ID).PasswordResetCode)

	require.NoError(t, f.svc.VerifyResetCode(ctx, "482913"))
	assert.Equal(t, domain.ResetStateVerified, f.stored(t, user.ID).ResetState())

	token, err := f.svc.ResetPassword(ctx, "sara@example.com", "new-password")
	require.NoError(t, err)
	claims, err := f.svc.TokenManager().Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	stored := f.stored(t, user.ID)
	assert.Equal(t, domain.ResetStateNone, stored.ResetState())
	assert.Nil(t, stored.PasswordResetExpiresAt)
	assert.Equal(t, token.Value, *stored.Token)

	_, _, err = f.svc.Login(ctx, "sara@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "sara@example.com", "new-password")
	assert.NoError(t, err)

	_, err = f.svc.ResetPassword(ctx, "sara@example.com", "third-password")
	assert.ErrorIs(t, err, ErrNotVerified)

	require.Len(t, f.events, 2)
	assert.Equal(t, events.EventPasswordChanged, f.events[1].Type)
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, f.mailer.count())

	_, err = f.svc.ResetPassword(context.Background(), "ghost@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordReset_NewRequestReplacesCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "sara@example.com", "old-password")
	f.useCodes("111111", "222222")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	assert.Equal(t, 2, f.mailer.count())

	assert.ErrorIs(t, f.svc.VerifyResetCode(ctx, "111111"), ErrInvalidOrExpiredCode)
	require.NoError(t, f.svc.VerifyResetCode(ctx, "222222"))
	assert.True(t, f.stored(t, user.ID).PasswordResetVerified)
}

func TestPasswordReset_RequestAfterVerifyRevokes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "sara@example.com", "old-password")
	f.useCodes("111111", "222222")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	require.NoError(t, f.svc.VerifyResetCode(ctx, "111111"))
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))

	_, err := f.svc.ResetPassword(ctx, "sara@example.com", "new-password")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestPasswordReset_ExpiryIsExclusive(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "just before expiry", elapsed: resetTTL - time.Nanosecond},
		{name: "at expiry", elapsed: resetTTL, wantErr: ErrInvalidOrExpiredCode},
		{name: "after expiry", elapsed: resetTTL + time.Second, wantErr: ErrInvalidOrExpiredCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()
			f.register(t, "sara@example.com", "old-password")
			f.useCodes("654321")

			require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
			f.advance(tt.elapsed)

			err := f.svc.VerifyResetCode(ctx, "654321")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPasswordReset_WrongCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "sara@example.com", "old-password")
	f.useCodes("123456")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	err := f.svc.VerifyResetCode(ctx, "000000")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	assert.Equal(t, "INVALID_OR_EXPIRED_CODE", apperrors.ToDomainError(err).Code)
	assert.False(t, f.stored(t, user.ID).PasswordResetVerified)
}

func TestPasswordReset_CollidingCodeIsRedrawn(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first := f.register(t, "sara@example.com", "old-password")
	second := f.register(t, "omid@example.com", "old-password")

	f.useCodes("111111", "111111", "333333")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "omid@example.com"))
	assert.Contains(t, f.mailer.last().Body, "333333")

	require.NoError(t, f.svc.VerifyResetCode(ctx, "333333"))
	assert.False(t, f.stored(t, first.ID).PasswordResetVerified)
	assert.True(t, f.stored(t, second.ID).PasswordResetVerified)
}

func TestPasswordReset_DeliveryFailureRollsBack(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "sara@example.com", "old-password")
	f.useCodes("777777")
	f.mailer.err = errors.New("smtp: 421 service not available")

	err := f.svc.RequestPasswordReset(ctx, "sara@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, "DELIVERY_FAILED", de.Code)
	assert.NotContains(t, de.Message, "421")
	assert.ErrorIs(t, de, f.mailer.err)
	assert.Contains(t, de.Error(), "421 service not available")

	assert.Equal(t, domain.ResetStateNone, f.stored(t, user.ID).ResetState())
	assert.ErrorIs(t, f.svc.VerifyResetCode(ctx, "777777"), ErrInvalidOrExpiredCode)
}

func TestPasswordReset_DeliveryTimeout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "sara@example.com", "old-password")
	f.useCodes("777777")
	f.mailer.block = true

	start := time.Now()
	err := f.svc.RequestPasswordReset(ctx, "sara@example.com")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Nil(t, f.stored(t, user.ID).PasswordResetCode)
}

func TestPasswordReset_TooLongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "sara@example.com", "old-password")
	f.useCodes("101010")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "sara@example.com"))
	require.NoError(t, f.svc.VerifyResetCode(ctx, "101010"))

	_, err := f.svc.ResetPassword(ctx, "sara@example.com", string(bytes.Repeat([]byte("x"), 73)))
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}
