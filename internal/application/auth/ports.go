package auth

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type IDGenerator interface {
	NewID() string
}

type TokenGenerator interface {
	NewToken() string
}
