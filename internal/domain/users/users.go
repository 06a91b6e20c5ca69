package users

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserLoginEmpty  = errors.New("user login is empty")
	ErrUserPasswdEmpty = errors.New("user password is empty")
)

// Role is the access level carried in the session token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleOwner Role = "OWNER"
)

func (r Role) String() string {
	return string(r)
}

// Admin reports whether the role may call administrative endpoints.
func (r Role) Admin() bool {
	return r == RoleAdmin || r == RoleOwner
}

func ParseRole(role string) (Role, error) {
	switch role {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	case "OWNER":
		return RoleOwner, nil
	default:
		return "", fmt.Errorf("unknown user role: %s", role)
	}
}

type User struct {
	login        string
	passwordHash string
	role         Role
}

// CreateUser builds a fresh user from registration input.
// Self-registered users always start with the USER role.
func CreateUser(login, password string) (*User, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := getPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("getPasswordHash: %w", err)
	}

	return &User{
		login:        login,
		passwordHash: passwordHash,
		role:         RoleUser,
	}, nil
}

// NewUser restores a user from persisted state.
func NewUser(login, passwordHash string, role Role) (*User, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if _, err := ParseRole(role.String()); err != nil {
		return nil, err
	}

	return &User{
		login:        login,
		passwordHash: passwordHash,
		role:         role,
	}, nil
}

func (u *User) Login() string {
	return u.login
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func (u *User) Role() Role {
	return u.role
}

func getPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return string(hash), nil
}

func ValidateLogin(login string) error {
	if login == "" {
		return ErrUserLoginEmpty
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrUserPasswdEmpty
	}

	return nil
}
