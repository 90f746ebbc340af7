package costing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExportClaims identifies the calling service requesting a usage-export
// dump, mirroring the shape of tokens.Claims but scoped to a single
// service-to-service purpose rather than a user session.
type ExportClaims struct {
	ServiceName string `json:"service_name"`
	jwt.RegisteredClaims
}

// ErrInvalidExportToken is returned for any signature, expiry, or claim
// mismatch — callers should not distinguish further than presence, same
// treatment CapChecker gives its reason strings.
var ErrInvalidExportToken = errors.New("invalid usage-export token")

// UsageExportAuth verifies the bearer token an external reporting service
// presents before it may read the AI usage ledger. HTTP/REST is out of
// scope for this core (contract only, per spec), so this is the
// verification helper alone — no handler or router is wired to it here;
// a future HTTP surface calls VerifyExportToken before serving the dump.
// Grounded on the teacher's internal/tokens.Manager.ValidateToken, reusing
// the same HS256 + registered-claims shape.
type UsageExportAuth struct {
	signingKey []byte
}

func NewUsageExportAuth(signingKey string) *UsageExportAuth {
	return &UsageExportAuth{signingKey: []byte(signingKey)}
}

func (a *UsageExportAuth) VerifyExportToken(tokenString string) (*ExportClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ExportClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExportToken, err)
	}

	claims, ok := token.Claims.(*ExportClaims)
	if !ok || !token.Valid || claims.ServiceName == "" {
		return nil, ErrInvalidExportToken
	}
	return claims, nil
}

// IssueExportToken is used only by tests and operator tooling to mint a
// short-lived token for a named reporting service — there is no user
// login flow in this core to issue one through.
func (a *UsageExportAuth) IssueExportToken(serviceName string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := ExportClaims{
		ServiceName: serviceName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
}
