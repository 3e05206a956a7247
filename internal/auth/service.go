package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	pkgauth "github.com/storelyhq/storely-backend/pkg/auth"
	"github.com/storelyhq/storely-backend/pkg/config"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	pkgerrors "github.com/storelyhq/storely-backend/pkg/errors"
	"github.com/storelyhq/storely-backend/pkg/logger"
	"github.com/storelyhq/storely-backend/pkg/security"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	verificationTokenTTL      = 24 * time.Hour
	passwordResetTokenTTL     = time.Hour
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error)
	Logout(ctx context.Context, claims *pkgauth.AccessTokenClaims) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerificationEmail(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userRepository interface {
	Create(ctx context.Context, record *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	MarkEmailVerified(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, hashed string) error
}

type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	BlacklistKey(jti string) string
	EmailVerificationKey(token string) string
	PasswordResetKey(token string) string
}

type mailSender interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	TokenStore     tokenStore
	Mailer         mailSender
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users       userRepository
	tokens      tokenStore
	mailer      mailSender
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TokenStore == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:       params.UserRepo,
		tokens:      params.TokenStore,
		mailer:      params.Mailer,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

// Register creates the account and dispatches a verification email. A failed
// email dispatch does not roll back the account; the token stays valid for a
// later resend.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*UserDTO, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup email")
	}

	hashed, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	token := uuid.NewString()
	verificationKey := s.tokens.EmailVerificationKey(token)
	if err := s.tokens.Set(ctx, verificationKey, strconv.FormatUint(uint64(user.ID), 10), verificationTokenTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification token")
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Name, token); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.UUID.String()), "failed to send verification email", err)
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// Login authenticates a shopper and mints an access token.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if err := s.verifyPassword(req.Password, user.Password); err != nil {
		return nil, err
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		UserUUID: user.UUID,
		Email:    user.Email,
		Role:     pkgauth.RoleUser,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &LoginResponse{AccessToken: token, User: toUserDTO(user)}, nil
}

// AdminLogin authenticates a back-office account.
func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*AdminLoginResponse, error) {
	admin, err := s.users.FindAdminByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup admin")
	}

	if err := s.verifyPassword(req.Password, admin.Password); err != nil {
		return nil, err
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   admin.ID,
		UserUUID: admin.UUID,
		Email:    admin.Email,
		Role:     pkgauth.RoleAdmin,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &AdminLoginResponse{AccessToken: token, AdminID: admin.UUID, Name: admin.Name}, nil
}

// Logout blacklists the token id for the remainder of its lifetime. Tokens
// past expiry are rejected by parsing already, so nothing is stored for them.
func (s *service) Logout(ctx context.Context, claims *pkgauth.AccessTokenClaims) error {
	if claims == nil || claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token has no id")
	}
	if claims.ExpiresAt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "token has no expiry")
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	key := s.tokens.BlacklistKey(claims.ID)
	if err := s.tokens.Set(ctx, key, "revoked", remaining); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "blacklist token")
	}
	return nil
}

// VerifyEmail consumes a pending verification token.
func (s *service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "verification token required")
	}
	key := s.tokens.EmailVerificationKey(token)
	stored, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "verification token is invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification token")
	}

	parsed, err := strconv.ParseUint(stored, 10, 64)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse verification token")
	}
	userID := uint(parsed)
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account no longer exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if err := s.users.MarkEmailVerified(ctx, userID, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark verified")
	}
	if err := s.tokens.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "failed to drop consumed verification token")
	}
	return nil
}

// ResendVerificationEmail re-issues a verification token for an unverified
// account. Unlike Register, a failed dispatch surfaces to the caller since the
// email is the whole point of the request.
func (s *service) ResendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "email is not associated with any account")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user.EmailVerifiedAt != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "account is already verified")
	}

	token := uuid.NewString()
	key := s.tokens.EmailVerificationKey(token)
	if err := s.tokens.Set(ctx, key, strconv.FormatUint(uint64(user.ID), 10), verificationTokenTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification token")
	}
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Name, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}
	return nil
}

// RequestPasswordReset issues a short-lived reset token and emails it.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "email is not associated with any account")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	token := uuid.NewString()
	key := s.tokens.PasswordResetKey(token)
	if err := s.tokens.Set(ctx, key, strconv.FormatUint(uint64(user.ID), 10), passwordResetTokenTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password reset token")
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token and rotates the account password. The
// old password must still verify, and the new one must actually change it.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	key := s.tokens.PasswordResetKey(req.Token)
	stored, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "password reset token is invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load password reset token")
	}

	parsed, err := strconv.ParseUint(stored, 10, 64)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse password reset token")
	}
	user, err := s.users.FindByID(ctx, uint(parsed))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account no longer exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	if req.NewPassword != req.ConfirmNewPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}

	oldMatches, err := security.VerifyPassword(req.OldPassword, user.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !oldMatches {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "old password is incorrect")
	}

	newMatchesOld, err := security.VerifyPassword(req.NewPassword, user.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if newMatchesOld {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the old password")
	}

	hashed, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	if err := s.tokens.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "failed to drop consumed password reset token")
	}
	return nil
}

func (s *service) verifyPassword(password, encoded string) error {
	ok, err := security.VerifyPassword(password, encoded)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
