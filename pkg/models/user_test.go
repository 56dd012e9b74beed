package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCredentialUser(t *testing.T) {
	cred := Credential{
		ID:        "user_1",
		Email:     "ann@example.com",
		Username:  "ann",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Password:  "secret1",
	}

	user := cred.User()
	if user.ID != cred.ID || user.Email != cred.Email || user.Username != cred.Username {
		t.Errorf("unexpected user: %+v", user)
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret1") || strings.Contains(string(data), "password") {
		t.Errorf("session user leaked the password: %s", data)
	}
}
