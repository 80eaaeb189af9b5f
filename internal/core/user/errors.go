package user

import "errors"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailAlreadyExists はメールアドレスがストレージの一意制約に違反した場合に返却されます。
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrUsernameAlreadyExists はユーザー名がストレージの一意制約に違反した場合に返却されます。
	ErrUsernameAlreadyExists = errors.New("username already exists")
	// ErrInvalidCredentials はログイン情報が一致しない場合に返却されます。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken はトークンが不正・期限切れ・失効済みの場合に返却されます。
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidID はIDが不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)

const (
	msgEmailTaken       = "A user with this email already exists."
	msgUsernameTaken    = "A user with that username already exists."
	msgPasswordTooShort = "Ensure this field has at least 8 characters."
	msgPasswordMismatch = "Passwords don't match"
	msgFieldRequired    = "This field is required."
	minPasswordLength   = 8
	maxNameLength       = 150
	maxEmailLength      = 254
)
