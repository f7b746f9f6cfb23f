package identity

import (
	"strings"
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor used for password hashing
const bcryptCost = 12

// Account lockout policy
const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

// UserStatus represents the lifecycle state of a user account
type UserStatus string

const (
	UserStatusActive      UserStatus = "ACTIVE"
	UserStatusDeactivated UserStatus = "DEACTIVATED"
)

// IsValid checks if the status is a valid UserStatus
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusDeactivated:
		return true
	}
	return false
}

// User represents an account that owns customers and invoices
type User struct {
	shared.BaseAggregateRoot
	Username            string     `gorm:"size:50;not null;uniqueIndex"`
	Email               string     `gorm:"size:255;not null"`
	PasswordHash        string     `gorm:"size:255;not null"`
	Status              UserStatus `gorm:"size:20;not null;default:'ACTIVE'"`
	FailedLoginAttempts int        `gorm:"not null;default:0"`
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
}

// TableName returns the database table name
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active user with a hashed password
func NewUser(username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Status:            UserStatusActive,
	}, nil
}

func validateUsername(username string) error {
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if len(username) < 3 || len(username) > 50 {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be between 3 and 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if !strings.Contains(email, "@") || len(email) > 255 {
		return shared.NewDomainError("INVALID_EMAIL", "Email is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates input beyond 72 bytes
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_FAILED", "Failed to hash password")
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword verifies the old password and replaces it with the new one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

// IsLocked reports whether the account is currently locked out
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// CanLogin checks whether the account is allowed to authenticate
func (u *User) CanLogin() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}
	if u.IsLocked() {
		return shared.NewDomainError("ACCOUNT_LOCKED", "Account is temporarily locked due to repeated login failures")
	}
	return nil
}

// RecordLoginFailure increments the failure counter and locks the account
// once the threshold is reached
func (u *User) RecordLoginFailure() {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxFailedLoginAttempts {
		until := time.Now().Add(lockoutDuration)
		u.LockedUntil = &until
	}
	u.IncrementVersion()
}

// RecordLoginSuccess resets the failure counter and stamps the login time
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.IncrementVersion()
}

// Deactivate marks the account as deactivated
func (u *User) Deactivate() {
	u.Status = UserStatusDeactivated
	u.IncrementVersion()
}
