package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type MFAMethod string

const (
	MFAMethodNone  MFAMethod = ""
	MFAMethodTOTP  MFAMethod = "totp"
	MFAMethodEmail MFAMethod = "email"
)

type User struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	PasswordHash     []byte
	Role             UserRole
	Active           bool
	MFAEnabled       bool
	MFAMethod        MFAMethod
	MFASecret        string
	MFAVerified      bool
	BackupCodeHashes []string
	AvatarURL        *string
	FailedLogins     int
	LockUntil        *time.Time
	PasswordHistory  []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Locked reports whether the account lockout timer is still running.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

type Session struct {
	ID         string
	UserID     string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}
