// Package newsletter manages marketing-list subscriptions through an
// email provider. Unsubscribes are authorized by a signed token embedded
// in every mailing, so no login is needed to leave the list.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrBlockedDomain = errors.New("email domain not accepted")
	ErrInvalidToken  = errors.New("invalid unsubscribe token")
)

// Provider is the mailing-list backend.
type Provider interface {
	Subscribe(ctx context.Context, email string) error
	Unsubscribe(ctx context.Context, email string) error
}

const unsubscribeTokenTTL = 90 * 24 * time.Hour

type Service struct {
	provider    Provider
	tokenSecret []byte
	now         func() time.Time
}

func NewService(provider Provider, tokenSecret string) *Service {
	return &Service{
		provider:    provider,
		tokenSecret: []byte(tokenSecret),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe validates the address and adds it to the list. Disposable
// domains are refused outright.
func (s *Service) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if isDisposableDomain(email) {
		return ErrBlockedDomain
	}
	return s.provider.Subscribe(ctx, email)
}

// UnsubscribeToken mints the signed token embedded in mailing footers.
func (s *Service) UnsubscribeToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     strings.ToLower(email),
		"purpose": "unsubscribe",
		"exp":     s.now().Add(unsubscribeTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("sign unsubscribe token: %w", err)
	}
	return signed, nil
}

// Unsubscribe verifies the token and removes its subject from the list.
func (s *Service) Unsubscribe(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.tokenSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != "unsubscribe" {
		return "", ErrInvalidToken
	}
	email, _ := claims["sub"].(string)
	if email == "" {
		return "", ErrInvalidToken
	}

	if err := s.provider.Unsubscribe(ctx, email); err != nil {
		return "", err
	}
	return email, nil
}

func isDisposableDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return true
	}
	_, blocked := disposableDomains[email[at+1:]]
	return blocked
}
