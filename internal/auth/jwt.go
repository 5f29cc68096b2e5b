package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "vortextau-chat"

// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// --- JWT Claims ---

// CustomClaims identifies the client a bearer token was issued to.
type CustomClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// NewAccessToken generates a new HS256 token for clientID.
func NewAccessToken(clientID, jwtSecret string, expiration time.Duration) (string, error) {
	if clientID == "" {
		return "", errors.New("client id is required")
	}
	now := time.Now()
	claims := CustomClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   clientID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		slog.Error("error signing JWT token", "client_id", clientID, "error", err)
		return "", err
	}
	return signedToken, nil
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(tokenString, jwtSecret string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ClientID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
