package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	pkgauth "github.com/storelyhq/storely-backend/pkg/auth"
	"github.com/storelyhq/storely-backend/pkg/config"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	pkgerrors "github.com/storelyhq/storely-backend/pkg/errors"
	"github.com/storelyhq/storely-backend/pkg/logger"
	"github.com/storelyhq/storely-backend/pkg/security"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byEmail      map[string]*models.User
	byID         map[uint]*models.User
	adminByEmail map[string]*models.Admin
	nextID       uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail:      map[string]*models.User{},
		byID:         map[uint]*models.User{},
		adminByEmail: map[string]*models.Admin{},
		nextID:       1,
	}
}

func (f *fakeUserRepo) Create(_ context.Context, record *models.User) (*models.User, error) {
	if _, exists := f.byEmail[record.Email]; exists {
		return nil, gorm.ErrDuplicatedKey
	}
	record.ID = f.nextID
	f.nextID++
	record.UUID = uuid.New()
	f.byEmail[record.Email] = record
	f.byID[record.ID] = record
	return record, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindAdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	admin, ok := f.adminByEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return admin, nil
}

func (f *fakeUserRepo) MarkEmailVerified(_ context.Context, id uint, at time.Time) error {
	user, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.EmailVerifiedAt = &at
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uint, hashed string) error {
	user, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Password = hashed
	return nil
}

type storedValue struct {
	value string
	ttl   time.Duration
}

type fakeTokenStore struct {
	values map[string]storedValue
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{values: map[string]storedValue{}}
}

func (f *fakeTokenStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = storedValue{value: value.(string), ttl: ttl}
	return nil
}

func (f *fakeTokenStore) Get(_ context.Context, key string) (string, error) {
	stored, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return stored.value, nil
}

func (f *fakeTokenStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeTokenStore) BlacklistKey(jti string) string {
	return "token_blacklist:" + jti
}

func (f *fakeTokenStore) EmailVerificationKey(token string) string {
	return "email_verification:" + token
}

func (f *fakeTokenStore) PasswordResetKey(token string) string {
	return "password_reset:" + token
}

type fakeMailer struct {
	sent   []string
	resets []string
	fail   bool
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, toEmail, _, token string) error {
	if f.fail {
		return errors.New("sendgrid unavailable")
	}
	f.sent = append(f.sent, toEmail+"|"+token)
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, toEmail, _, token string) error {
	if f.fail {
		return errors.New("sendgrid unavailable")
	}
	f.resets = append(f.resets, toEmail+"|"+token)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "storely", ExpirationMinutes: 15}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newTestService(t *testing.T, repo *fakeUserRepo, store *fakeTokenStore, mailer *fakeMailer) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:   repo,
		TokenStore: store,
		Mailer:     mailer,
		JWTConfig:  testJWTConfig(),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustRegister(t *testing.T, svc Service, email string) *UserDTO {
	t.Helper()
	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Ada",
		Email:    email,
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return dto
}

func TestRegisterCreatesAccountAndDispatchesEmail(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	mailer := &fakeMailer{}
	svc := newTestService(t, repo, store, mailer)

	dto := mustRegister(t, svc, "Ada@Example.com")
	if dto.Email != "ada@example.com" {
		t.Fatalf("expected email normalized, got %s", dto.Email)
	}
	if dto.EmailVerified {
		t.Fatal("expected new account unverified")
	}

	user := repo.byEmail["ada@example.com"]
	if user == nil {
		t.Fatal("expected user persisted under normalized email")
	}
	if user.Password == "correct horse battery" {
		t.Fatal("expected password hashed")
	}
	ok, err := security.VerifyPassword("correct horse battery", user.Password)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one verification email, got %d", len(mailer.sent))
	}
	token := strings.SplitN(mailer.sent[0], "|", 2)[1]
	stored, exists := store.values[store.EmailVerificationKey(token)]
	if !exists {
		t.Fatal("expected verification token stored")
	}
	if stored.ttl != verificationTokenTTL {
		t.Fatalf("expected ttl %s, got %s", verificationTokenTTL, stored.ttl)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(t, repo, newFakeTokenStore(), &fakeMailer{})

	mustRegister(t, svc, "ada@example.com")
	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Other",
		Email:    "ada@example.com",
		Password: "another password",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterSucceedsWhenEmailDispatchFails(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	svc := newTestService(t, repo, store, &fakeMailer{fail: true})

	mustRegister(t, svc, "ada@example.com")
	if len(store.values) != 1 {
		t.Fatal("expected verification token stored despite dispatch failure")
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(t, repo, newFakeTokenStore(), &fakeMailer{})
	mustRegister(t, svc, "ada@example.com")
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != pkgauth.RoleUser {
		t.Fatalf("expected user role, got %s", claims.Role)
	}
	if claims.UserID != repo.byEmail["ada@example.com"].ID {
		t.Fatalf("expected user id in claims, got %d", claims.UserID)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}

	t.Run("wrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "nope"})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("unknownEmail", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "whatever"})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestAdminLogin(t *testing.T) {
	repo := newFakeUserRepo()
	hashed, err := security.HashPassword("ops password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.adminByEmail["ops@example.com"] = &models.Admin{
		ID:       1,
		UUID:     uuid.New(),
		Name:     "Ops",
		Email:    "ops@example.com",
		Password: hashed,
	}
	svc := newTestService(t, repo, newFakeTokenStore(), &fakeMailer{})

	resp, err := svc.AdminLogin(context.Background(), LoginRequest{Email: "ops@example.com", Password: "ops password"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != pkgauth.RoleAdmin {
		t.Fatalf("expected admin role, got %s", claims.Role)
	}
}

func TestLogoutBlacklistsRemainingLifetime(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestService(t, newFakeUserRepo(), store, &fakeMailer{})

	claims := &pkgauth.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
		},
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}

	stored, ok := store.values[store.BlacklistKey("jti-123")]
	if !ok {
		t.Fatal("expected jti blacklisted")
	}
	if stored.ttl <= 0 || stored.ttl > 10*time.Minute {
		t.Fatalf("expected ttl bounded by remaining lifetime, got %s", stored.ttl)
	}
}

func TestLogoutExpiredTokenStoresNothing(t *testing.T) {
	store := newFakeTokenStore()
	svc := newTestService(t, newFakeUserRepo(), store, &fakeMailer{})

	claims := &pkgauth.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-old",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("expected nothing stored, got %v", store.values)
	}
}

func TestVerifyEmail(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	mailer := &fakeMailer{}
	svc := newTestService(t, repo, store, mailer)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")
	token := strings.SplitN(mailer.sent[0], "|", 2)[1]

	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if repo.byEmail["ada@example.com"].EmailVerifiedAt == nil {
		t.Fatal("expected account verified")
	}
	if _, exists := store.values[store.EmailVerificationKey(token)]; exists {
		t.Fatal("expected token consumed")
	}

	if err := svc.VerifyEmail(ctx, token); err == nil {
		t.Fatal("expected reuse of consumed token to fail")
	}
	err := svc.VerifyEmail(ctx, "bogus")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResendVerificationEmail(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	mailer := &fakeMailer{}
	svc := newTestService(t, repo, store, mailer)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")

	if err := svc.ResendVerificationEmail(ctx, "Ada@Example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected a second verification email, got %d", len(mailer.sent))
	}
	token := strings.SplitN(mailer.sent[1], "|", 2)[1]
	if _, exists := store.values[store.EmailVerificationKey(token)]; !exists {
		t.Fatal("expected fresh token stored")
	}

	t.Run("unknownEmail", func(t *testing.T) {
		err := svc.ResendVerificationEmail(ctx, "ghost@example.com")
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("alreadyVerified", func(t *testing.T) {
		if err := svc.VerifyEmail(ctx, token); err != nil {
			t.Fatalf("verify: %v", err)
		}
		err := svc.ResendVerificationEmail(ctx, "ada@example.com")
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestRequestPasswordReset(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	mailer := &fakeMailer{}
	svc := newTestService(t, repo, store, mailer)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")

	if err := svc.RequestPasswordReset(ctx, "Ada@Example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if len(mailer.resets) != 1 {
		t.Fatalf("expected one reset email, got %d", len(mailer.resets))
	}
	token := strings.SplitN(mailer.resets[0], "|", 2)[1]
	stored, exists := store.values[store.PasswordResetKey(token)]
	if !exists {
		t.Fatal("expected reset token stored")
	}
	if stored.ttl != passwordResetTokenTTL {
		t.Fatalf("expected ttl %s, got %s", passwordResetTokenTTL, stored.ttl)
	}

	t.Run("unknownEmail", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "ghost@example.com")
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestResetPassword(t *testing.T) {
	repo := newFakeUserRepo()
	store := newFakeTokenStore()
	mailer := &fakeMailer{}
	svc := newTestService(t, repo, store, mailer)
	ctx := context.Background()

	mustRegister(t, svc, "ada@example.com")
	if err := svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := strings.SplitN(mailer.resets[0], "|", 2)[1]

	t.Run("mismatchedConfirmation", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:              token,
			OldPassword:        "correct horse battery",
			NewPassword:        "brand new password",
			ConfirmNewPassword: "something else",
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("wrongOldPassword", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:              token,
			OldPassword:        "nope",
			NewPassword:        "brand new password",
			ConfirmNewPassword: "brand new password",
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("newPasswordSameAsOld", func(t *testing.T) {
		err := svc.ResetPassword(ctx, ResetPasswordRequest{
			Token:              token,
			OldPassword:        "correct horse battery",
			NewPassword:        "correct horse battery",
			ConfirmNewPassword: "correct horse battery",
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	if err := svc.ResetPassword(ctx, ResetPasswordRequest{
		Token:              token,
		OldPassword:        "correct horse battery",
		NewPassword:        "brand new password",
		ConfirmNewPassword: "brand new password",
	}); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	user := repo.byEmail["ada@example.com"]
	ok, err := security.VerifyPassword("brand new password", user.Password)
	if err != nil || !ok {
		t.Fatalf("expected new password to verify, ok=%v err=%v", ok, err)
	}
	if _, exists := store.values[store.PasswordResetKey(token)]; exists {
		t.Fatal("expected reset token consumed")
	}

	err = svc.ResetPassword(ctx, ResetPasswordRequest{
		Token:              token,
		OldPassword:        "brand new password",
		NewPassword:        "yet another password",
		ConfirmNewPassword: "yet another password",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected consumed token rejected, got %v", err)
	}
}
