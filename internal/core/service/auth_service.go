package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

const defaultTokenTTL = time.Hour

type tokenClaims struct {
	ID   int64  `json:"id"`
	User string `json:"user"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService checks passwords against stored bcrypt hashes and issues the
// signed session tokens the rest of the API trusts.
type AuthService struct {
	store  port.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(store port.Store, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Login returns a signed token and the authenticated user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("username and password are required: %w", domain.ErrValidation)
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", nil, domain.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrUnauthorized
	}

	token, err := s.Issue(domain.Claims{ActorID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Issue(c domain.Claims) (string, error) {
	now := s.now()
	claims := tokenClaims{
		ID:   c.ActorID,
		User: c.Username,
		Role: c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims; any failure is ErrUnauthorized.
func (s *AuthService) Verify(token string) (domain.Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return domain.Claims{}, errors.Join(domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.ID <= 0 {
		return domain.Claims{}, domain.ErrUnauthorized
	}
	return domain.Claims{ActorID: claims.ID, Username: claims.User, Role: claims.Role}, nil
}
