package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a direct-access token fails validation.
var ErrInvalidToken = errors.New("invalid or expired access token")

const directIssuer = "family-media"

// DirectClaims identify the object a direct-access URL grants read access to.
type DirectClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// URLSigner issues and validates the time-limited URLs the local backend
// hands out in place of cloud presigned URLs.
type URLSigner struct {
	secret  []byte
	baseURL string
}

// NewURLSigner creates a signer. baseURL is the externally reachable origin,
// e.g. "https://album.example.com".
func NewURLSigner(secret, baseURL string) (*URLSigner, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("url signing key must be at least 16 bytes")
	}
	return &URLSigner{secret: []byte(secret), baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Sign returns a URL for key valid for ttl.
func (s *URLSigner) Sign(key string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DirectClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    directIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign direct url: %w", err)
	}
	return s.baseURL + "/api/direct?token=" + url.QueryEscape(token), nil
}

// Verify validates a token and returns the key it grants access to.
func (s *URLSigner) Verify(tokenStr string) (string, error) {
	claims := &DirectClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(directIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Key == "" {
		return "", ErrInvalidToken
	}
	return claims.Key, nil
}
