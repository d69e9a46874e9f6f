package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrNotAuthenticated      = errors.New("Not authenticated")

	ErrInvalidEmailFormat    = errors.New("Invalid email format")
	ErrInvalidPasswordFormat = errors.New("Invalid password format")
	ErrInvalidFullname       = errors.New("Full name is required and must be a non-empty string")
	ErrInvalidRole           = errors.New("Role must be farmer or company")
	ErrEmailRegistered       = errors.New("Email already registered")
)
