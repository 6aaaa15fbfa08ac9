package auth

import "errors"

// Deny reasons returned by Policy and the login path. The dispatcher maps
// each one to its wire status.
var (
	NoPermissionErr       = errors.New("no permission")
	InvalidCredentialsErr = errors.New("invalid credentials")
	UsernameExistsErr     = errors.New("username already exists")
)
