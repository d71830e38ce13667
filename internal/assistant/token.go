// ABOUTME: Bearer token discovery for the gateway backend
// ABOUTME: Reads COVEN_TOKEN or the XDG token file and inspects JWT expiry without verifying

package assistant

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResolveToken returns configured if set, then COVEN_TOKEN, then the
// contents of $XDG_CONFIG_HOME/coven/token (or ~/.config/coven/token).
// An empty result means requests are sent without authorization.
func ResolveToken(configured string) string {
	if configured != "" {
		return configured
	}
	if token := os.Getenv("COVEN_TOKEN"); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	data, err := os.ReadFile(filepath.Join(configDir, "coven", "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// tokenExpiry extracts the exp claim of a JWT without checking its signature;
// the gateway verifies tokens, this is only used to warn early.
// ok is false for opaque tokens or tokens without exp.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
