package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"animal-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityVerifier turns a bearer credential into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Claims carried by identity tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens issued by the identity provider.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(secret, issuer, audience string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt verifier: empty secret")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (domain.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := new(Claims)
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// MockVerifier trusts the token as the user id. Local development only.
type MockVerifier struct{}

func (MockVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{UserID: token, Email: token + "@dev.local"}, nil
}

type identityKey struct{}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// RequireIdentity rejects requests without a valid "Authorization: Bearer" header.
func RequireIdentity(verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, domain.ErrUnauthenticated)
				return
			}
			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeError(w, domain.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
