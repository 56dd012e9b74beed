package auth

import (
	"crypto/subtle"
	"fmt"

	"songshelf/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMode controls how Login treats the password argument.
type PasswordMode string

const (
	// PasswordNone never compares passwords: any password logs into a known email.
	PasswordNone PasswordMode = config.PasswordModeNone
	// PasswordPlain compares against the stored cleartext.
	PasswordPlain PasswordMode = config.PasswordModePlain
	// PasswordBcrypt stores bcrypt hashes and compares with them.
	PasswordBcrypt PasswordMode = config.PasswordModeBcrypt
)

// ParsePasswordMode validates a configured mode name. Empty means PasswordNone.
func ParsePasswordMode(name string) (PasswordMode, error) {
	switch mode := PasswordMode(name); mode {
	case "":
		return PasswordNone, nil
	case PasswordNone, PasswordPlain, PasswordBcrypt:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid password mode: %s", name)
	}
}

// storedPassword returns the value to persist for a new credential.
func (m PasswordMode) storedPassword(password string, cost int) (string, error) {
	if m != PasswordBcrypt {
		return password, nil
	}
	return hashPassword(password, cost)
}

// verify reports whether password matches the stored value under this mode.
func (m PasswordMode) verify(stored, password string) bool {
	switch m {
	case PasswordPlain:
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	case PasswordBcrypt:
		if !isHashedPassword(stored) {
			// record written before bcrypt mode was enabled
			return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
		}
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	default:
		return true
	}
}

// hashPassword hashes a plaintext password using bcrypt
func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = 12
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// isHashedPassword checks if a password string is already hashed
func isHashedPassword(password string) bool {
	// bcrypt hashes have a specific format: $2a$, $2b$, $2x$, or $2y$ followed by cost and salt
	return len(password) >= 4 &&
		password[0] == '$' &&
		password[1] == '2' &&
		(password[2] == 'a' || password[2] == 'b' || password[2] == 'x' || password[2] == 'y') &&
		password[3] == '$'
}
