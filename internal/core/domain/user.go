package domain

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
}

// Claims are the identity facts the core trusts once a token is verified.
type Claims struct {
	ActorID  int64
	Username string
	Role     string
}
