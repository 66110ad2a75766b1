package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Account is a local login with a bcrypt password hash.
type Account struct {
	Username string
	PassHash string
	Role     string
}

// Accounts are the local logins keyed by username.
type Accounts map[string]Account

// NewAccounts indexes the accounts that have both a username and a hash.
func NewAccounts(list ...Account) Accounts {
	out := Accounts{}
	for _, a := range list {
		if a.Username == "" || a.PassHash == "" {
			continue
		}
		out[a.Username] = a
	}
	return out
}

// Verify checks the password and returns the account's role.
func (as Accounts) Verify(username, password string) (string, bool) {
	a, ok := as[username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(a.PassHash), []byte(password)) != nil {
		return "", false
	}
	return a.Role, true
}
