// Package servicetoken issues and validates short-lived HS256 tokens used for
// service-to-service calls (competition -> compliance).
package servicetoken

import (
	"errors"
	"sync"
	"time"

	dErrors "clubreg/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "clubreg"

// Claims are the service token claims. Subject carries the calling service.
type Claims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// Service signs and validates service tokens for a single audience.
type Service struct {
	signingKey []byte
	audience   string
	now        func() time.Time
}

// New creates a token service bound to the given audience.
func New(signingKey, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		audience:   audience,
		now:        time.Now,
	}
}

// Issue signs a token naming the calling service.
func (s *Service) Issue(service string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			Issuer:    issuer,
			Audience:  []string{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses a token and checks signature, expiry and audience.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithAudience(s.audience),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Source caches one issued token and re-issues it shortly before expiry.
type Source struct {
	mu      sync.Mutex
	svc     *Service
	caller  string
	ttl     time.Duration
	token   string
	expires time.Time
}

// NewSource returns a token source for the calling service.
func NewSource(svc *Service, caller string, ttl time.Duration) *Source {
	return &Source{svc: svc, caller: caller, ttl: ttl}
}

// Token returns a valid bearer token.
func (s *Source) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.svc.now()
	if s.token != "" && now.Before(s.expires.Add(-s.ttl/5)) {
		return s.token, nil
	}
	token, err := s.svc.Issue(s.caller, s.ttl)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expires = now.Add(s.ttl)
	return token, nil
}

// ValidateService returns the calling service named by a valid token.
func (s *Service) ValidateService(tokenString string) (string, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
