// Package auth turns bearer tokens into the actor every service call needs.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenParser validates a raw token and returns who is calling.
type TokenParser interface {
	ParseToken(token string) (models.Actor, error)
}

type jwtParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorParser verifies tokens against the Casdoor application certificate.
type CasdoorParser struct {
	client jwtParser
}

func NewCasdoorParser(cfg config.CasdoorConfig) (*CasdoorParser, error) {
	if cfg.Endpoint == "" || cfg.Certificate == "" {
		return nil, errors.New("casdoor endpoint and certificate are required")
	}
	client := casdoorsdk.NewClient(cfg.Endpoint, cfg.ClientID, cfg.ClientSecret, cfg.Certificate, cfg.Organization, cfg.Application)
	return &CasdoorParser{client: client}, nil
}

func (p *CasdoorParser) ParseToken(token string) (models.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Actor{}, ErrMissingToken
	}

	claims, err := p.client.ParseJwtToken(token)
	if err != nil {
		return models.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.User.Id == "" {
		return models.Actor{}, fmt.Errorf("%w: token carries no user id", ErrInvalidToken)
	}

	return models.Actor{ID: claims.User.Id, Role: RoleOf(&claims.User)}, nil
}

// RoleOf maps a Casdoor user onto an evaluation role. Admin flags win, then
// named roles, then the user type. Anyone else is a student.
func RoleOf(user *casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}

	role := models.RoleStudent
	for _, r := range user.Roles {
		if r == nil {
			continue
		}
		switch models.UserRole(strings.ToLower(r.Name)) {
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleTeacher:
			role = models.RoleTeacher
		}
	}
	if role != models.RoleStudent {
		return role
	}

	if t := models.UserRole(strings.ToLower(user.Type)); t.Valid() {
		return t
	}
	return models.RoleStudent
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// StaticParser accepts a fixed set of tokens. It backs local development
// when no Casdoor instance is configured.
type StaticParser map[string]models.Actor

func (p StaticParser) ParseToken(token string) (models.Actor, error) {
	if token == "" {
		return models.Actor{}, ErrMissingToken
	}
	actor, ok := p[token]
	if !ok {
		return models.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

var (
	_ TokenParser = (*CasdoorParser)(nil)
	_ TokenParser = StaticParser(nil)
)
