package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/observability/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// AuthService handles the account side of onboarding: registration, login and
// the bearer tokens that scope device routes to their owner.
type AuthService struct {
	users      port.UserRepository
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	now        func() time.Time
}

func NewAuthService(users port.UserRepository, signingKey []byte, issuer string, accessTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		signingKey: signingKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := domain.NewUser(email, hash, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Insert(ctx, user); err != nil {
		metrics.LoginsTotal.WithLabelValues("register", "error").Inc()
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("register", "ok").Inc()
	log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("login", "rejected").Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("login", "rejected").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"iss":     s.issuer,
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("login", "ok").Inc()
	return token, user, nil
}

// ParseToken validates a bearer token and returns the owner it identifies.
func (s *AuthService) ParseToken(tokenString string) (domain.OwnerID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.OwnerID{}, domain.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.OwnerID{}, domain.ErrInvalidCredentials
	}
	raw, _ := claims["user_id"].(string)
	owner, err := domain.ParseOwnerID(raw)
	if err != nil {
		return domain.OwnerID{}, domain.ErrInvalidCredentials
	}
	return owner, nil
}
