package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/config"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/security"
)

const testPassword = "Sup3r$ecret"

type authFixture struct {
	svc        *AuthService
	users      *fakeUserStore
	sessions   *fakeSessionStore
	challenges *fakeChallengeCache
	mailer     *fakeMailer
	cfg        *config.AppConfig
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:            "test-jwt-secret",
			JWTTTL:               time.Hour,
			SessionTTL:           24 * time.Hour,
			LockoutThreshold:     5,
			LockoutDuration:      15 * time.Minute,
			PasswordHistoryDepth: 5,
			BackupCodeCount:      8,
			MFAIssuer:            "StepStunner",
			MFACodeTTL:           5 * time.Minute,
		},
	}

	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	challenges := newFakeChallengeCache()
	mailer := &fakeMailer{}

	svc := NewAuthService(users, sessions, challenges, mailer, okCaptcha{}, nil, cfg, zerolog.Nop())

	return &authFixture{
		svc:        svc,
		users:      users,
		sessions:   sessions,
		challenges: challenges,
		mailer:     mailer,
		cfg:        cfg,
	}
}

func (f *authFixture) seedUser(t *testing.T, mutate func(*models.User)) models.User {
	t.Helper()

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := models.User{
		ID:              ids.New(),
		Name:            "Asha Shrestha",
		Email:           "asha@example.com",
		PasswordHash:    hash,
		Role:            models.UserRoleUser,
		Active:          true,
		PasswordHistory: []string{string(hash)},
	}
	if mutate != nil {
		mutate(&user)
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, RegisterInput{
		Name:     "Asha Shrestha",
		Email:    "Asha@Example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Token == "" {
		t.Fatal("register returned no token")
	}
	if result.User.Email != "asha@example.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}

	login, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("login returned no token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Someone Else",
		Email:    "asha@example.com",
		Password: testPassword,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.KindOf(err))
	}
}

func TestRegisterWeakPasswordCreatesNothing(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Asha Shrestha",
		Email:    "asha@example.com",
		Password: "weak",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.KindOf(err))
	}
	if len(f.users.users) != 0 {
		t.Fatal("weak-password registration persisted a user")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: testPassword})
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth", apperr.KindOf(err))
	}
}

func TestLoginLockout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, nil)

	base := time.Now()
	f.svc.now = func() time.Time { return base }

	for i := 1; i <= 4; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "Wr0ng$pass"})
		if apperr.KindOf(err) != apperr.KindAuth {
			t.Fatalf("attempt %d: kind = %v, want auth", i, apperr.KindOf(err))
		}
	}

	// Fifth failure crosses the threshold.
	_, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "Wr0ng$pass"})
	if apperr.KindOf(err) != apperr.KindLocked {
		t.Fatalf("kind = %v, want locked", apperr.KindOf(err))
	}

	// The correct password is refused while the lock holds.
	_, err = f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword})
	if apperr.KindOf(err) != apperr.KindLocked {
		t.Fatalf("kind = %v, want locked with correct password", apperr.KindOf(err))
	}

	// Once the window elapses the login succeeds and the counter resets.
	f.svc.now = func() time.Time { return base.Add(16 * time.Minute) }
	result, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login after lock window: %v", err)
	}
	if result.Token == "" {
		t.Fatal("no token after lock window")
	}

	user, _ := f.users.FindByEmail(ctx, "asha@example.com")
	if user.FailedLogins != 0 || user.LockUntil != nil {
		t.Fatalf("failure state not reset: failed=%d lockUntil=%v", user.FailedLogins, user.LockUntil)
	}
}

func TestLoginTOTPGate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	enrollment, err := security.GenerateTOTPEnrollment("StepStunner", "asha@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPEnrollment: %v", err)
	}
	f.seedUser(t, func(u *models.User) {
		u.MFAEnabled = true
		u.MFAVerified = true
		u.MFAMethod = models.MFAMethodTOTP
		u.MFASecret = enrollment.Secret
	})

	// Correct password without a code never yields a token.
	result, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.RequiresMFA {
		t.Fatal("expected an mfa challenge")
	}
	if result.Token != "" {
		t.Fatal("token issued before second factor")
	}
	if result.MFAMethod != models.MFAMethodTOTP {
		t.Fatalf("method = %q", result.MFAMethod)
	}

	// A wrong code is an auth failure.
	_, err = f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword, MFACode: "000000"})
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth for bad code", apperr.KindOf(err))
	}

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	result, err = f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword, MFACode: code})
	if err != nil {
		t.Fatalf("Login with code: %v", err)
	}
	if result.Token == "" {
		t.Fatal("no token after valid code")
	}
}

func TestLoginBackupCodeSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	codes, hashes, err := security.GenerateBackupCodes(4)
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}
	f.seedUser(t, func(u *models.User) {
		u.MFAEnabled = true
		u.MFAMethod = models.MFAMethodTOTP
		u.MFASecret = "JBSWY3DPEHPK3PXP"
		u.BackupCodeHashes = hashes
	})

	result, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword, MFACode: codes[0]})
	if err != nil {
		t.Fatalf("Login with backup code: %v", err)
	}
	if result.Token == "" {
		t.Fatal("no token from backup code login")
	}

	user, _ := f.users.FindByEmail(ctx, "asha@example.com")
	if len(user.BackupCodeHashes) != 3 {
		t.Fatalf("backup codes remaining = %d, want 3", len(user.BackupCodeHashes))
	}

	_, err = f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword, MFACode: codes[0]})
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth for replayed backup code", apperr.KindOf(err))
	}
}

func TestLoginEmailMFA(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, func(u *models.User) {
		u.MFAEnabled = true
		u.MFAMethod = models.MFAMethodEmail
	})

	result, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.RequiresMFA {
		t.Fatal("expected an mfa challenge")
	}

	code := f.mailer.lastCode()
	if code == "" {
		t.Fatal("no challenge code dispatched")
	}

	result, err = f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword, MFACode: code})
	if err != nil {
		t.Fatalf("Login with emailed code: %v", err)
	}
	if result.Token == "" {
		t.Fatal("no token after emailed code")
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, func(u *models.User) { u.Active = false })

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: testPassword})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want forbidden", apperr.KindOf(err))
	}
}

func TestChangePasswordRejectsHistory(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, nil)

	if err := f.svc.ChangePassword(ctx, user.ID, testPassword, "N3w$ecret9"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// The old password is now in history and cannot come back.
	err := f.svc.ChangePassword(ctx, user.ID, "N3w$ecret9", testPassword)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation for reused password", apperr.KindOf(err))
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, nil)

	if _, err := f.svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: testPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if f.sessions.count() == 0 {
		t.Fatal("login created no session")
	}

	if err := f.svc.ChangePassword(ctx, user.ID, testPassword, "N3w$ecret9"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatal("sessions survived a password change")
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, nil)

	err := f.svc.ChangePassword(context.Background(), user.ID, "Wr0ng$pass", "N3w$ecret9")
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth", apperr.KindOf(err))
	}
}

func TestSetupAndVerifyMFA(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, nil)

	setup, err := f.svc.SetupMFA(ctx, user.ID, models.MFAMethodTOTP)
	if err != nil {
		t.Fatalf("SetupMFA: %v", err)
	}
	if setup.Secret == "" || setup.URI == "" || setup.QRImage == "" {
		t.Fatal("incomplete totp enrollment")
	}
	if len(setup.BackupCodes) != f.cfg.Security.BackupCodeCount {
		t.Fatalf("backup codes = %d, want %d", len(setup.BackupCodes), f.cfg.Security.BackupCodeCount)
	}

	// Setup alone never turns the factor on.
	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.MFAEnabled {
		t.Fatal("mfa enabled before verification")
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if err := f.svc.VerifyMFA(ctx, user.ID, code); err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}

	stored, _ = f.users.GetByID(ctx, user.ID)
	if !stored.MFAEnabled || !stored.MFAVerified {
		t.Fatal("mfa not enabled after verification")
	}
}

func TestVerifyMFAWithoutSetup(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, nil)

	err := f.svc.VerifyMFA(context.Background(), user.ID, "123456")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.KindOf(err))
	}
}

func TestDisableMFA(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, func(u *models.User) {
		u.MFAEnabled = true
		u.MFAVerified = true
		u.MFAMethod = models.MFAMethodTOTP
		u.MFASecret = "JBSWY3DPEHPK3PXP"
		u.BackupCodeHashes = []string{"hash"}
	})

	if err := f.svc.DisableMFA(ctx, user.ID, "Wr0ng$pass"); apperr.KindOf(err) != apperr.KindAuth {
		t.Fatalf("kind = %v, want auth for wrong password", apperr.KindOf(err))
	}

	if err := f.svc.DisableMFA(ctx, user.ID, testPassword); err != nil {
		t.Fatalf("DisableMFA: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.MFAEnabled || stored.MFAMethod != models.MFAMethodNone || stored.MFASecret != "" {
		t.Fatal("mfa state not cleared")
	}
	if len(stored.BackupCodeHashes) != 0 {
		t.Fatal("backup codes survived disable")
	}
}
