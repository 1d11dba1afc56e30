package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"hireflow/internal/common/errors"
)

const userIDKey = "userId"

// Verifier checks a bearer token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// TokenVerifier accepts HS256 tokens signed with Secret and, when Keys is
// set, RS256 tokens signed by the realm's keys and issued by its issuer.
type TokenVerifier struct {
	Secret []byte
	Keys   *KeySet
}

func NewVerifier(secret []byte, keys *KeySet) *TokenVerifier {
	return &TokenVerifier{Secret: secret, Keys: keys}
}

func (v *TokenVerifier) Verify(ctx context.Context, raw string) (string, error) {
	claims := jwt.MapClaims{}
	viaRealm := false
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.Secret) == 0 {
				return nil, fmt.Errorf("HMAC tokens are not accepted")
			}
			return v.Secret, nil
		case *jwt.SigningMethodRSA:
			if v.Keys == nil {
				return nil, fmt.Errorf("RSA tokens are not accepted")
			}
			viaRealm = true
			kid, _ := t.Header["kid"].(string)
			return v.Keys.Key(ctx, kid)
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if viaRealm && v.Keys.Issuer() != "" && !claims.VerifyIssuer(v.Keys.Issuer(), true) {
		return "", fmt.Errorf("invalid token: unexpected issuer")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// Middleware accepts bearer tokens v verifies and stores the sub claim for
// UserID.
func Middleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, "missing bearer token")
			return
		}

		sub, err := v.Verify(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			abort(c, err.Error())
			return
		}
		c.Set(userIDKey, sub)
		c.Next()
	}
}

// ParseToken validates an HS256 token and returns its subject.
func ParseToken(raw string, secret []byte) (string, error) {
	return NewVerifier(secret, nil).Verify(context.Background(), raw)
}

// IssueToken signs an HS256 token for sub; used by tooling and tests.
func IssueToken(sub string, secret []byte, expiresAt int64) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   sub,
		ExpiresAt: expiresAt,
	}).SignedString(secret)
}

// UserID returns the subject stored by Middleware.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	id, _ := v.(string)
	return id
}

func abort(c *gin.Context, details string) {
	e := errors.NewAuthenticationError(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": e.Code, "message": e.Message, "details": e.Details},
	})
}
