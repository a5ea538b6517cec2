package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = 30 * 24 * time.Hour
	bearerPrefix    = "Bearer "
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     types.Role
}

// AuthService issues bearer tokens and resolves them back to users.
type AuthService struct {
	users    UserRepository
	secret   []byte
	tokenTTL time.Duration
	hashCost int
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users UserRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveIdentity turns an Authorization header value into the user it
// names. The prefix check is case-sensitive. Every verification failure,
// including a token for a deleted user, is reported as ErrInvalidToken.
func (s *AuthService) ResolveIdentity(ctx context.Context, header string) (types.User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return types.User{}, ErrNoToken
	}

	subject, err := s.parseTokenSubject(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
	if err != nil {
		s.logger.Debug("token verification failed", zap.Error(err))
		return types.User{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidToken
		}
		return types.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (types.User, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return types.User{}, "", invalidInput("name, email and password are required")
	}

	switch input.Role {
	case "":
		input.Role = types.RoleStudent
	case types.RoleStudent, types.RoleInstructor:
	default:
		return types.User{}, "", invalidInput("role must be student or instructor")
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return types.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return types.User{}, "", err
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashed),
		Role:         input.Role,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", err
	}
	user.PasswordHash = ""

	token, err := s.IssueToken(user)
	if err != nil {
		return types.User{}, "", err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrInvalidCredentials
		}
		return types.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, "", ErrInvalidCredentials
	}
	user.PasswordHash = ""

	token, err := s.IssueToken(user)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token whose subject is the user's id.
func (s *AuthService) IssueToken(user types.User) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) parseTokenSubject(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty token")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
