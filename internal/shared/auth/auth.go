// Package auth valida credenciais administrativas: JWT HS256 assinado por uma
// chave conhecida do trust store (kid -> segredo), com expiração e escopo.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const ScopeSettlementAdmin = "settlement:admin"

var ErrUnauthorized = errors.New("unauthorized")

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope procura o escopo na lista separada por espaço
func (c Claims) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseKeys lê ADMIN_JWT_KEYS no formato "kid:segredo,kid2:segredo2"
func ParseKeys(raw string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kid, secret, ok := strings.Cut(pair, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("malformed key entry %q (want kid:secret)", pair)
		}
		if len(secret) < 16 {
			return nil, fmt.Errorf("secret for kid %q is too short", kid)
		}
		keys[kid] = []byte(secret)
	}
	return keys, nil
}

type Verifier struct {
	keys  map[string][]byte
	scope string
	now   func() time.Time
}

func NewVerifier(keys map[string][]byte, requiredScope string) *Verifier {
	return &Verifier{keys: keys, scope: requiredScope, now: time.Now}
}

// Verify valida assinatura, kid, exp e escopo. Todo erro é ErrUnauthorized.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := v.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: token without exp", ErrUnauthorized)
	}
	if !claims.ExpiresAt.After(v.now()) {
		return nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	if v.scope != "" && !claims.HasScope(v.scope) {
		return nil, fmt.Errorf("%w: missing scope %s", ErrUnauthorized, v.scope)
	}
	return claims, nil
}

// Sign emite um token (usado pelo settlectl e nos testes)
func Sign(kid string, secret []byte, subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	t.Header["kid"] = kid
	return t.SignedString(secret)
}
