package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingToken  = errors.New("missing authorization token")
	ErrWrongTokenUse = errors.New("token not valid for this use")
)

// Roles carried in match tokens. A spectator can open the sync stream and
// watch, but never holds a player slot and never issues commands.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// Token uses. Access tokens authenticate requests; refresh tokens only mint
// new pairs. Claims missing the marker fail validation on both paths.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// Claims is the match-server token payload: who the caller is, what they
// may do, and which use the token was minted for.
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	TokenUse string `json:"use"`
	jwt.RegisteredClaims
}

// JWTManager mints and validates the server's HS256 tokens.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager with the given signing secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  15 * time.Minute,
		refreshExpiry: 7 * 24 * time.Hour,
	}
}

func (m *JWTManager) mint(userID, role, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Role:     role,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// GenerateAccessToken mints a short-lived token authenticating API and sync
// stream requests under the given role.
func (m *JWTManager) GenerateAccessToken(userID, role string) (string, error) {
	return m.mint(userID, role, useAccess, m.accessExpiry)
}

// GenerateRefreshToken mints a long-lived token good only for obtaining a
// fresh pair.
func (m *JWTManager) GenerateRefreshToken(userID, role string) (string, error) {
	return m.mint(userID, role, useRefresh, m.refreshExpiry)
}

func (m *JWTManager) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken checks an access token and returns its claims. A refresh
// token is refused here: an exfiltrated refresh token must not open the API.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != useAccess {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

// ValidateRefreshToken checks a refresh token for the token renewal flow.
func (m *JWTManager) ValidateRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenUse != useRefresh {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

// TokenPair holds an access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair creates both tokens for a user under one role.
func (m *JWTManager) GenerateTokenPair(userID, role string) (*TokenPair, error) {
	access, err := m.GenerateAccessToken(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateRefreshToken(userID, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessExpiry.Seconds()),
	}, nil
}
