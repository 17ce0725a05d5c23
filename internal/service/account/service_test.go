package account_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/auth"
	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/service/account"
	"github.com/explorex/nomad-connect/internal/token"
)

type captureMailer struct {
	to     string
	tokens []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, resetToken string) error {
	m.to = to
	m.tokens = append(m.tokens, resetToken)
	return nil
}

func setupAccount(t *testing.T) (*account.Service, *captureMailer, *gorm.DB) {
	t.Helper()
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(gdb, nil, logger)
	codec := token.NewHMACCodec("test-secret", time.Hour)
	guard := auth.NewLockoutGuard(3, time.Minute)
	mailer := &captureMailer{}
	return account.NewService(appCtx, codec, guard, mailer), mailer, gdb
}

func TestSignupIssuesToken(t *testing.T) {
	svc, _, _ := setupAccount(t)
	ctx := context.Background()

	user, sessionToken, err := svc.Signup(ctx, "alice", "  Alice@Test.COM ", "hunter42x")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	assert.Equal(t, "alice@test.com", user.Email)
	assert.Equal(t, "free", user.Tier)
	assert.NotEqual(t, "hunter42x", user.PasswordHash)
	assert.NotEmpty(t, sessionToken)
}

func TestSignupRejectsWeakPasswordAndDuplicates(t *testing.T) {
	svc, _, _ := setupAccount(t)
	ctx := context.Background()

	var ve *apperr.ValidationError
	_, _, err := svc.Signup(ctx, "alice", "a@test.com", "short")
	require.ErrorAs(t, err, &ve)

	_, _, err = svc.Signup(ctx, "alice", "a@test.com", "lettersonly")
	require.ErrorAs(t, err, &ve)

	_, _, err = svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	// Normalization makes the duplicate check case-insensitive.
	_, _, err = svc.Signup(ctx, "alice2", "A@TEST.com", "hunter42x")
	require.ErrorAs(t, err, &ve)
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, gdb := setupAccount(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	user, sessionToken, err := svc.Login(ctx, "a@test.com", "hunter42x", "1.2.3.4")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionToken)
	assert.Equal(t, "alice", user.Username)

	var stored db.User
	require.NoError(t, gdb.First(&stored, "id = ?", user.ID).Error)
	assert.False(t, stored.LastLoginAt.IsZero())
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	svc, _, gdb := setupAccount(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	// Unknown email and wrong password are indistinguishable.
	_, _, err = svc.Login(ctx, "nobody@test.com", "hunter42x", "1.2.3.4")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "a@test.com", "wrongpass1", "1.2.3.4")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	// Deactivated accounts look the same as bad credentials.
	require.NoError(t, gdb.Model(&db.User{}).Where("username = ?", "alice").Update("active", false).Error)
	_, _, err = svc.Login(ctx, "a@test.com", "hunter42x", "1.2.3.4")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestLoginLockout(t *testing.T) {
	svc, _, _ := setupAccount(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	// Guard threshold is 3 in this setup.
	for i := 0; i < 3; i++ {
		_, _, err = svc.Login(ctx, "a@test.com", "wrongpass1", "1.2.3.4")
		require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	}

	// Even the correct password is refused while locked.
	_, _, err = svc.Login(ctx, "a@test.com", "hunter42x", "1.2.3.4")
	var le *apperr.LockedError
	require.ErrorAs(t, err, &le)
	assert.Positive(t, le.RetryAfter)

	// A different client IP is a different lockout identity.
	_, _, err = svc.Login(ctx, "a@test.com", "hunter42x", "5.6.7.8")
	require.NoError(t, err)
}

func TestForgotPasswordNeverRevealsExistence(t *testing.T) {
	svc, mailer, _ := setupAccount(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@test.com"))
	assert.Empty(t, mailer.tokens)

	require.NoError(t, svc.ForgotPassword(ctx, "A@test.com"))
	require.Len(t, mailer.tokens, 1)
	assert.Equal(t, "a@test.com", mailer.to)
}

func TestSubmitFeedback(t *testing.T) {
	svc, _, gdb := setupAccount(t)
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, "alice", "a@test.com", "hunter42x")
	require.NoError(t, err)

	id, err := svc.SubmitFeedback(ctx, user.ID, "idea", "offline radar mode")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var fb db.Feedback
	require.NoError(t, gdb.First(&fb, "id = ?", id).Error)
	assert.Equal(t, "idea", fb.Category)
	assert.Equal(t, user.ID, fb.UserID)
}
