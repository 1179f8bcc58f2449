package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfeidau/photoshare/internal/models"
)

var (
	// ErrMalformedToken is returned when the credential cannot be decoded.
	ErrMalformedToken = errors.New("malformed credential")

	// ErrTokenExpired is returned when the credential's expiry has passed.
	ErrTokenExpired = errors.New("credential expired")
)

// Claims represents the claims the server embeds in the credential.
//
// They are decoded without verifying the signature, so they are only a hint
// for display; the server remains the authority on who is logged in.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	LoginName string `json:"login_name"`
	FirstName string `json:"first_name"`
}

// Expiry returns the expiry timestamp, or the zero time if none is set.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// User builds the partial user record carried by the claims.
func (c *Claims) User() *models.User {
	return &models.User{
		ID:        c.UserID,
		LoginName: c.LoginName,
		FirstName: c.FirstName,
	}
}

func parseClaims(token string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrMalformedToken)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrMalformedToken)
	}

	if !claims.ExpiresAt.After(now) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// SignTokenWithKey creates an HS256 credential carrying the given identity.
// Used primarily for testing.
func SignTokenWithKey(key []byte, userID, loginName, firstName string, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		LoginName: loginName,
		FirstName: firstName,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
