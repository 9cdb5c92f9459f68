package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
)

// Identity is the verified caller extracted from a bearer token.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Premium       bool
	Admin         bool
}

// Verifier validates a bearer token and returns the caller identity.
type Verifier interface {
	Verify(tokenString string) (*Identity, error)
}

type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Premium       any    `json:"premium,omitempty"`
	Admin         bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens issued by the identity provider.
// Subject carries the uid; issuer and audience are checked when
// configured.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(biztime.NowUTC),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Premium:       truthyClaim(claims.Premium),
		Admin:         claims.Admin,
	}, nil
}

// SignForTest issues a token the verifier accepts. Test helper.
func (v *JWTVerifier) SignForTest(identity Identity, ttl time.Duration) (string, error) {
	now := biztime.NowUTC()
	claims := &Claims{
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Premium:       identity.Premium,
		Admin:         identity.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// truthyClaim tolerates identity providers that encode the premium
// flag as a bool, number, or string.
func truthyClaim(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "true" {
			return true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0
		}
		return false
	default:
		return false
	}
}
