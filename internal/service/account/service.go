package account

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/auth"
	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/repository"
	"github.com/explorex/nomad-connect/internal/token"
)

// EmailSender delivers outbound account mail. The real transport lives
// outside this core; LogMailer is the in-process stand-in.
type EmailSender interface {
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}

// Service implements signup, login and password-reset intake on top of
// the user repository, token codec and lockout guard.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	codec    token.Codec
	guard    *auth.LockoutGuard
	mailer   EmailSender
}

// NewService wires an account service from shared dependencies.
func NewService(appCtx *app.AppContext, codec token.Codec, guard *auth.LockoutGuard, mailer EmailSender) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		codec:    codec,
		guard:    guard,
		mailer:   mailer,
	}
}

// Signup creates an account and returns the user plus a session token.
//
// Behavior:
//   - Email is normalized (trimmed, lowercased) before the uniqueness check.
//   - Password strength is validated before any side effect.
//   - New accounts start on the free tier.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*db.User, string, error) {
	email = normalizeEmail(email)

	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", apperr.Invalid("an account with this email already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &db.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Tier:         "free",
		IsVisible:    true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	sessionToken, err := s.codec.Issue(user.ID)
	if err != nil {
		s.appCtx.Logger.Error("token issuance failed after signup", "user_id", user.ID, "err", err)
		return nil, "", err
	}

	s.appCtx.Logger.Info("user signed up", "user_id", user.ID)
	return user, sessionToken, nil
}

// Login authenticates an email/password pair from a given client IP.
//
// Behavior:
//   - The lockout guard runs before the password hash is touched; while
//     a lock is active the hash comparison is skipped entirely.
//   - Unknown email and wrong password produce the same generic error.
//   - Success clears failure state and stamps last_login_at.
func (s *Service) Login(ctx context.Context, email, password, clientIP string) (*db.User, string, error) {
	email = normalizeEmail(email)
	key := auth.Key(email, clientIP)

	if err := s.guard.Check(key); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.guard.RecordFailure(key)
			return nil, "", apperr.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.Active || !auth.CheckPassword(user.PasswordHash, password) {
		s.guard.RecordFailure(key)
		return nil, "", apperr.ErrInvalidCredentials
	}

	s.guard.Clear(key)

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		// Non-critical enrichment; the login still succeeds.
		s.appCtx.Logger.Warn("failed to stamp last login", "user_id", user.ID, "err", err)
	}

	sessionToken, err := s.codec.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, sessionToken, nil
}

// ForgotPassword accepts a reset request. The response never reveals
// whether the account exists; mail is only sent when it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	resetToken, err := s.codec.Issue(user.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		s.appCtx.Logger.Error("password reset mail failed", "user_id", user.ID, "err", err)
	}
	return nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uint64) (*db.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// SubmitFeedback stores a feedback row for the user.
func (s *Service) SubmitFeedback(ctx context.Context, userID uint64, category, message string) (string, error) {
	return s.userRepo.SaveFeedback(ctx, userID, category, message)
}

// LogMailer writes outbound mail to the log instead of delivering it.
type LogMailer struct {
	AppCtx *app.AppContext
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, resetToken string) error {
	m.AppCtx.Logger.Info("password reset issued", "to", to, "token_len", len(resetToken))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
