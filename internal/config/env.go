package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// AdminKeyEnv names the variable holding the hex-encoded admin private key.
const AdminKeyEnv = "ADMIN_PRIVATE_KEY"

// Error is a configuration problem detected before any I/O against the network.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// LoadDotEnv loads .env from the working directory if present.
func LoadDotEnv() {
	_ = godotenv.Load() // best-effort
}

// LoadAdminKey reads ADMIN_PRIVATE_KEY, loading .env first.
func LoadAdminKey() (string, error) {
	LoadDotEnv()
	return AdminKeyFrom(os.Getenv)
}

// AdminKeyFrom reads the admin key through getenv without touching .env.
func AdminKeyFrom(getenv func(string) string) (string, error) {
	key := strings.TrimSpace(getenv(AdminKeyEnv))
	if key == "" {
		return "", &Error{Key: AdminKeyEnv, Reason: "is not set"}
	}
	return key, nil
}
