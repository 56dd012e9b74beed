package models

import "time"

// User is the session-facing account record. It never carries a password.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credential is the record persisted in the users collection
type Credential struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	Password  string    `json:"password"` // cleartext unless the bcrypt password mode is used
}

// User strips the password from the credential
func (c Credential) User() User {
	return User{
		ID:        c.ID,
		Email:     c.Email,
		Username:  c.Username,
		CreatedAt: c.CreatedAt,
	}
}
