package security

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceIdentity describes the machine caller presented to the biometrics API.
type ServiceIdentity struct {
	Id       int
	UserName string
	Provider string
}

type Identity struct {
	ID         int    `json:"nameid"`
	UniqueName string `json:"unique_name"`
	SID        string `json:"sid"`
	Provider   string `json:"provider"`
}

// IdentityClaims includes Identity and standard JWT claims
type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

func DefaultServiceIdentity() *ServiceIdentity {
	return &ServiceIdentity{Id: 0, UserName: "assists-sync", Provider: "service"}
}

func CreateServiceToken(identity *ServiceIdentity, base64Secret string, expiresIn time.Duration) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", fmt.Errorf("invalid signing secret: %w", err)
	}
	now := time.Now()
	claims := IdentityClaims{
		Identity: Identity{
			ID:         identity.Id,
			UniqueName: identity.UserName,
			SID:        "assists-sync",
			Provider:   identity.Provider,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "axiapac",
			Subject:   identity.UserName,
			Audience:  []string{"biometrics"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secretBytes)
}

// ServiceTokenProvider returns a func that re-signs a token when the cached one
// is within a minute of expiring.
func ServiceTokenProvider(identity *ServiceIdentity, base64Secret string, expiresIn time.Duration) func() (string, error) {
	var mu sync.Mutex
	var token string
	var expiresAt time.Time
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if token != "" && time.Until(expiresAt) > time.Minute {
			return token, nil
		}
		signed, err := CreateServiceToken(identity, base64Secret, expiresIn)
		if err != nil {
			return "", err
		}
		token = signed
		expiresAt = time.Now().Add(expiresIn)
		return token, nil
	}
}
