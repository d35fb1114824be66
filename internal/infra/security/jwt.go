package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates a token whose validity window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or a failed signature check.
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessTokenClaims is the payload of short-lived access tokens.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims is the payload of refresh tokens. The session id binds
// the token to a single server-side session row.
type RefreshTokenClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies RS256 tokens for the configured issuer.
type TokenIssuer struct {
	keys       KeyProvider
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer builds a TokenIssuer backed by the given key provider.
func NewTokenIssuer(keys KeyProvider, issuer string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		keys:       keys,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL reports the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// RefreshTTL reports the configured refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// IssueAccessToken signs an access token for the given user.
func (t *TokenIssuer) IssueAccessToken(userID string, now time.Time) (string, error) {
	claims := AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	return t.sign(claims)
}

// IssueRefreshToken signs a refresh token bound to the given session.
func (t *TokenIssuer) IssueRefreshToken(userID, sessionID string, now time.Time) (string, error) {
	claims := RefreshTokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}
	return t.sign(claims)
}

// ParseAccessToken verifies the signature and validity window of an access token.
func (t *TokenIssuer) ParseAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := t.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseRefreshToken verifies the signature and validity window of a refresh token.
func (t *TokenIssuer) ParseRefreshToken(tokenString string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := t.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	key, err := t.keys.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = t.keys.SigningKID()

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return t.keys.GetVerificationKey(kid)
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return nil
}
