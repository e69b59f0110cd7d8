package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/flowbit/support-platform/internal/core/errors"
)

const (
	MaxEmailLength = 255
)

// Role is the coarse-grained access level of a user within its tenant.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an account belonging to exactly one tenant. Users are created by
// provisioning, never by tenant self-service, and the role is immutable once
// set.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	TenantID     string
	TenantName   string
	IsActive     bool
	CreatedAt    time.Time
}

// Identity is the resolved caller context attached to every authenticated
// request. It is the only identity shape the core consumes.
type Identity struct {
	UserID   uuid.UUID
	TenantID string
	Role     Role
}

// IsAdmin reports whether the identity carries the Admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UserParams holds the provisioning input for a new user.
type UserParams struct {
	Email      string
	Password   string
	Role       Role
	TenantID   string
	TenantName string
}

// Validate checks provisioning parameters.
func (p *UserParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	if p.Password == "" {
		errs.Add("password", "Password is required")
	}

	if !ValidRole(p.Role) {
		errs.Add("role", "Role must be Admin or User")
	}

	if p.TenantID == "" {
		errs.Add("tenantId", "Tenant ID is required")
	}
	if p.TenantName == "" {
		errs.Add("tenantName", "Tenant name is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewUser creates a provisioned user with a bcrypt password hash.
func NewUser(params UserParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: hash,
		Role:         params.Role,
		TenantID:     params.TenantID,
		TenantName:   params.TenantName,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
