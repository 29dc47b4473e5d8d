package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/apperr"
	"stepstunner/api/internal/config"
	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
	"stepstunner/api/internal/repository"
	"stepstunner/api/internal/security"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type AuthService struct {
	users      UserStore
	sessions   SessionStore
	challenges ChallengeCache
	mailer     Mailer
	captcha    CaptchaChecker
	activity   *ActivityRecorder
	cfg        *config.AppConfig
	log        zerolog.Logger
	now        func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	challenges ChallengeCache,
	mailer Mailer,
	captcha CaptchaChecker,
	activity *ActivityRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		challenges: challenges,
		mailer:     mailer,
		captcha:    captcha,
		activity:   activity,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

type RegisterInput struct {
	Name      string
	Email     string
	Phone     string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	Token       string
	User        models.User
	RequiresMFA bool
	MFAMethod   models.MFAMethod
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Name = strings.TrimSpace(input.Name)

	if input.Name == "" {
		return AuthResult{}, apperr.Validation("name required")
	}
	if !emailPattern.MatchString(input.Email) {
		return AuthResult{}, apperr.Validation("invalid email address")
	}
	if err := security.ValidatePasswordStrength(input.Password); err != nil {
		return AuthResult{}, apperr.Validation(err.Error())
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	user := models.User{
		ID:              ids.New(),
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		PasswordHash:    passwordHash,
		Role:            models.UserRoleUser,
		Active:          true,
		PasswordHistory: []string{string(passwordHash)},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, apperr.Conflict("email already registered")
		}
		return AuthResult{}, apperr.Internal(err)
	}

	s.record(user.ID, "register", input.IPAddress, nil)

	return s.issueSession(ctx, user, input.IPAddress, input.UserAgent)
}

type LoginInput struct {
	Email        string
	Password     string
	MFACode      string
	CaptchaToken string
	IPAddress    string
	UserAgent    string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if err := s.captcha.Verify(ctx, input.CaptchaToken, input.IPAddress); err != nil {
		return AuthResult{}, apperr.Validation("captcha verification failed")
	}

	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Auth("invalid credentials")
		}
		return AuthResult{}, apperr.Internal(err)
	}

	now := s.now()
	if user.Locked(now) {
		return AuthResult{}, apperr.Locked("account temporarily locked")
	}
	if !user.Active {
		return AuthResult{}, apperr.Forbidden("account deactivated")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, s.registerFailure(ctx, user, now)
	}

	if user.MFAEnabled {
		if input.MFACode == "" {
			if user.MFAMethod == models.MFAMethodEmail {
				s.dispatchEmailCode(ctx, user)
			}
			return AuthResult{RequiresMFA: true, MFAMethod: user.MFAMethod}, nil
		}
		if err := s.checkMFACode(ctx, &user, input.MFACode); err != nil {
			return AuthResult{}, err
		}
	}

	if user.FailedLogins > 0 || user.LockUntil != nil {
		if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset login failures failed")
		}
	}

	s.record(user.ID, "login", input.IPAddress, nil)

	return s.issueSession(ctx, user, input.IPAddress, input.UserAgent)
}

// registerFailure bumps the failed-attempt counter and locks the account once
// the threshold is crossed. The returned error is Locked on the crossing
// attempt, Auth otherwise.
func (s *AuthService) registerFailure(ctx context.Context, user models.User, now time.Time) error {
	failed := user.FailedLogins + 1
	var lockUntil *time.Time
	if failed >= s.cfg.Security.LockoutThreshold {
		until := now.Add(s.cfg.Security.LockoutDuration)
		lockUntil = &until
	}

	if err := s.users.RecordLoginFailure(ctx, user.ID, failed, lockUntil); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record login failure failed")
	}
	s.record(user.ID, "login_failed", "", map[string]any{"attempts": failed})

	if lockUntil != nil {
		return apperr.Locked("account temporarily locked")
	}
	return apperr.Auth("invalid credentials")
}

func (s *AuthService) checkMFACode(ctx context.Context, user *models.User, code string) error {
	switch user.MFAMethod {
	case models.MFAMethodTOTP:
		if security.ValidateTOTP(code, user.MFASecret) {
			return nil
		}
	case models.MFAMethodEmail:
		ok, err := s.challenges.CheckMFACode(ctx, user.ID, code)
		if err != nil {
			return apperr.Internal(err)
		}
		if ok {
			return nil
		}
	}

	// Backup codes work for either method and are consumed on use.
	if remaining, ok := security.ConsumeBackupCode(code, user.BackupCodeHashes); ok {
		user.BackupCodeHashes = remaining
		if err := s.users.Update(ctx, *user); err != nil {
			return apperr.Internal(err)
		}
		s.record(user.ID, "mfa_backup_code_used", "", map[string]any{"remaining": len(remaining)})
		return nil
	}

	s.record(user.ID, "mfa_failed", "", nil)
	return apperr.Auth("invalid mfa code")
}

func (s *AuthService) dispatchEmailCode(ctx context.Context, user models.User) {
	code, err := security.GenerateEmailCode()
	if err != nil {
		s.log.Error().Err(err).Msg("generate email mfa code failed")
		return
	}
	if err := s.challenges.StoreMFACode(ctx, user.ID, code, s.cfg.Security.MFACodeTTL); err != nil {
		s.log.Error().Err(err).Msg("store email mfa code failed")
		return
	}
	if err := s.mailer.SendMFACode(ctx, user.Email, code); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("mfa mail dispatch failed")
	}
}

func (s *AuthService) issueSession(ctx context.Context, user models.User, ip string, userAgent string) (AuthResult, error) {
	session := models.Session{
		ID:        ids.New(),
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: s.now().Add(s.cfg.Security.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	token, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		session.ID,
		string(user.Role),
		s.cfg.Security.JWTTTL,
	)
	if err != nil {
		return AuthResult{}, apperr.Internal(err)
	}

	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, current string, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return apperr.Auth("current password incorrect")
	}

	if err := security.ValidatePasswordStrength(newPassword); err != nil {
		return apperr.Validation(err.Error())
	}

	for _, prior := range user.PasswordHistory {
		if reused, _ := security.VerifyPassword(newPassword, []byte(prior)); reused {
			return apperr.Validation("password was used recently")
		}
	}

	newHash, err := security.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	history := append([]string{string(newHash)}, user.PasswordHistory...)
	if depth := s.cfg.Security.PasswordHistoryDepth; len(history) > depth {
		history = history[:depth]
	}

	user.PasswordHash = newHash
	user.PasswordHistory = history
	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Internal(err)
	}

	// Existing sessions are revoked; the client must authenticate again.
	if err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("session revocation failed")
	}

	s.record(user.ID, "password_changed", "", nil)
	return nil
}

type MFASetupResult struct {
	Method      models.MFAMethod
	Secret      string
	URI         string
	QRImage     string
	BackupCodes []string
}

// SetupMFA provisions a pending second factor. Enablement happens only
// through VerifyMFA with a valid code; there is no timed auto-enable.
func (s *AuthService) SetupMFA(ctx context.Context, userID string, method models.MFAMethod) (MFASetupResult, error) {
	if method != models.MFAMethodTOTP && method != models.MFAMethodEmail {
		return MFASetupResult{}, apperr.Validation("unsupported mfa method")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return MFASetupResult{}, apperr.Internal(err)
	}

	codes, hashes, err := security.GenerateBackupCodes(s.cfg.Security.BackupCodeCount)
	if err != nil {
		return MFASetupResult{}, apperr.Internal(err)
	}

	result := MFASetupResult{Method: method, BackupCodes: codes}

	switch method {
	case models.MFAMethodTOTP:
		enrollment, err := security.GenerateTOTPEnrollment(s.cfg.Security.MFAIssuer, user.Email)
		if err != nil {
			return MFASetupResult{}, apperr.Internal(err)
		}
		user.MFASecret = enrollment.Secret
		result.Secret = enrollment.Secret
		result.URI = enrollment.URI
		result.QRImage = enrollment.QRImage
	case models.MFAMethodEmail:
		user.MFASecret = ""
		s.dispatchEmailCode(ctx, user)
	}

	user.MFAMethod = method
	user.MFAEnabled = false
	user.MFAVerified = false
	user.BackupCodeHashes = hashes

	if err := s.users.Update(ctx, user); err != nil {
		return MFASetupResult{}, apperr.Internal(err)
	}

	s.record(user.ID, "mfa_setup", "", map[string]any{"method": string(method)})
	return result, nil
}

// VerifyMFA confirms the pending factor and switches MFA on.
func (s *AuthService) VerifyMFA(ctx context.Context, userID string, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if user.MFAMethod == models.MFAMethodNone {
		return apperr.Validation("mfa setup not started")
	}

	if err := s.checkMFACode(ctx, &user, code); err != nil {
		return err
	}

	user.MFAEnabled = true
	user.MFAVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Internal(err)
	}

	s.record(user.ID, "mfa_enabled", "", map[string]any{"method": string(user.MFAMethod)})
	return nil
}

// DisableMFA turns the second factor off after a password confirmation.
func (s *AuthService) DisableMFA(ctx context.Context, userID string, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return apperr.Auth("password incorrect")
	}

	user.MFAEnabled = false
	user.MFAVerified = false
	user.MFAMethod = models.MFAMethodNone
	user.MFASecret = ""
	user.BackupCodeHashes = nil

	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Internal(err)
	}

	s.record(user.ID, "mfa_disabled", "", nil)
	return nil
}

// SetAvatar stores the uploaded profile image URL.
func (s *AuthService) SetAvatar(ctx context.Context, userID string, url string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	user.AvatarURL = &url
	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) record(userID string, action string, ip string, details map[string]any) {
	id := userID
	s.activity.Record(ActivityEntry{
		UserID:  &id,
		Action:  action,
		IP:      ip,
		Details: details,
	})
}
