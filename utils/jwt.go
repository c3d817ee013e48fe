package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 12 * time.Hour

	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Claims is the decoded payload of an access or refresh token.
type Claims struct {
	UserID    uuid.UUID
	Role      string
	SessionID string
	Kind      string
	ExpiresAt time.Time
}

// Tokens issues and validates HS256 tokens that carry the user's role and the
// session id written at login.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	if secret == "" {
		secret = "restobar"
	}
	return &Tokens{secret: []byte(secret), now: time.Now}
}

func (t *Tokens) sign(kind, userRole string, userID uuid.UUID, sessionID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_role": userRole,
		"id":        userID.String(),
		"sid":       sessionID,
		"typ":       kind,
		"exp":       t.now().Add(ttl).Unix(),
	})
	return token.SignedString(t.secret)
}

func (t *Tokens) GenerateTokens(userRole string, userID uuid.UUID, sessionID string) (string, string, error) {
	access, err := t.sign(tokenAccess, userRole, userID, sessionID, accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.sign(tokenRefresh, userRole, userID, sessionID, refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *Tokens) parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return Claims{}, fmt.Errorf("error parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("invalid token")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return Claims{}, errors.New("invalid or missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(t.now()) {
		return Claims{}, errors.New("token has expired")
	}

	rawID, _ := claims["id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return Claims{}, errors.New("id not found or invalid type")
	}
	role, ok := claims["user_role"].(string)
	if !ok {
		return Claims{}, errors.New("role not found in token")
	}
	sid, _ := claims["sid"].(string)
	kind, _ := claims["typ"].(string)

	return Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sid,
		Kind:      kind,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// ValidateToken accepts access tokens only.
func (t *Tokens) ValidateToken(tokenString string) (Claims, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != tokenAccess {
		return Claims{}, errors.New("not an access token")
	}
	return claims, nil
}

// RefreshTokens rotates a refresh token into a new pair bound to the same
// session. The caller checks that the session is still current.
func (t *Tokens) RefreshTokens(oldRefreshToken string) (Claims, string, string, error) {
	claims, err := t.parse(oldRefreshToken)
	if err != nil {
		return Claims{}, "", "", fmt.Errorf("error parsing refresh token: %w", err)
	}
	if claims.Kind != tokenRefresh {
		return Claims{}, "", "", errors.New("invalid refresh token")
	}

	access, refresh, err := t.GenerateTokens(claims.Role, claims.UserID, claims.SessionID)
	if err != nil {
		return Claims{}, "", "", err
	}
	return claims, access, refresh, nil
}
