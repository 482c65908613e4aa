package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tphakala/foodscan/internal/errors"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.NewStd("invalid bearer token")

// JWTResolver verifies HS256 bearer tokens and maps them to identities.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver creates a resolver. An empty secret disables bearer auth.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Enabled reports whether a signing secret is configured.
func (r *JWTResolver) Enabled() bool {
	return r != nil && len(r.secret) > 0
}

// Resolve verifies token and returns the user identity named by its "sub"
// claim, or "user_id" when sub is absent.
func (r *JWTResolver) Resolve(token string) (Identity, error) {
	if !r.Enabled() {
		return Identity{}, invalid("bearer authentication is not configured")
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, invalid(fmt.Sprintf("token verification failed: %v", err))
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, invalid("unexpected claims type")
	}

	userID, _ := claims.GetSubject()
	if userID == "" {
		if v, ok := claims["user_id"].(string); ok {
			userID = v
		}
	}
	if strings.TrimSpace(userID) == "" {
		return Identity{}, invalid("token has no subject")
	}
	return User(userID), nil
}

// Issue signs a token for userID valid for ttl.
func (r *JWTResolver) Issue(userID string, ttl time.Duration) (string, error) {
	if !r.Enabled() {
		return "", invalid("bearer authentication is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

func invalid(reason string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidToken, reason)).
		Component("identity").
		Category(errors.CategoryValidation).
		Build()
}
