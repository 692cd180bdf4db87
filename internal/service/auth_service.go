package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencbt/practice-backend/internal/config"
	"github.com/opencbt/practice-backend/internal/model"
	"github.com/opencbt/practice-backend/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// Claims is the JWT payload. SessionID ties the token to the single active
// session stored in redis; a newer login rotates it and strands older tokens.
type Claims struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
	SessionID string     `json:"session_id"`
	jwt.RegisteredClaims
}

// AuthEventType names the messages published on the auth events channel.
type AuthEventType string

const (
	// AuthEventSessionReplaced: a new login displaced the user's previous
	// session. Carries the new session id so surviving connections can tell
	// whether they are the displaced one.
	AuthEventSessionReplaced AuthEventType = "session_replaced"
	// AuthEventSignedOut: the user logged out everywhere.
	AuthEventSignedOut AuthEventType = "signed_out"
)

// AuthEvent is one message on the auth events pub/sub channel.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UserID    string        `json:"user_id"`
	SessionID string        `json:"session_id,omitempty"`
}

// AuthService handles registration, login, session rotation, and token
// issuance. One active session per user: the session id in redis is the
// source of truth and tokens carrying any other id are rejected.
type AuthService struct {
	users *repository.UserRepository
	rdb   *redis.Client
	cfg   *config.Config
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		rdb:   rdb,
		cfg:   cfg,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates a student account.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         model.RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

// Login verifies credentials, rotates the user's session, and issues a JWT.
// Any previous session is displaced and notified over the auth channel.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	key := config.CacheKey.UserSessionKey(user.ID.String())

	replaced, err := s.rdb.GetSet(ctx, key, sessionID).Result()
	if err != nil && err != redis.Nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.rdb.Expire(ctx, key, s.cfg.JWTExpiry).Err(); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	if replaced != "" && replaced != sessionID {
		s.publishEvent(ctx, AuthEvent{
			Type:      AuthEventSessionReplaced,
			UserID:    user.ID.String(),
			SessionID: sessionID,
		})
	}

	token, err := s.issueToken(user, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user logged in")
	return token, user, nil
}

// Logout drops the user's session and notifies connected clients.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	key := config.CacheKey.UserSessionKey(userID.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	s.publishEvent(ctx, AuthEvent{Type: AuthEventSignedOut, UserID: userID.String()})
	return nil
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ValidateSession checks that the session id from a token is still the user's
// active one.
func (s *AuthService) ValidateSession(ctx context.Context, userID uuid.UUID, sessionID string) (bool, error) {
	current, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(userID.String())).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	return current == sessionID, nil
}

func (s *AuthService) issueToken(user *model.User, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) publishEvent(ctx context.Context, ev AuthEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.AuthEventsChannel(), raw).Err(); err != nil {
		// Pub/sub is best-effort; displaced clients still get rejected on
		// their next authenticated request.
		s.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("publish auth event failed")
	}
}
