package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"odinbook/internal/config"
	"odinbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer   = "odinbook-api"
	tokenAudience = "odinbook-client"

	sessionKeyPrefix = "session:"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// IdentityResolver issues, resolves and revokes the artifact a client
// presents on each request.
type IdentityResolver interface {
	Issue(ctx context.Context, id Identity) (string, error)
	Resolve(ctx context.Context, artifact string) (Identity, error)
	Revoke(ctx context.Context, artifact string) error
	// Mode reports which strategy the resolver implements.
	Mode() string
}

// NewResolver builds the resolver selected by cfg.AuthMode.
func NewResolver(cfg *config.Config, rdb *redis.Client) (IdentityResolver, error) {
	switch cfg.AuthMode {
	case config.AuthModeToken, "":
		return NewTokenResolver(cfg.JWTSecret, cfg.TokenTTL), nil
	case config.AuthModeSession:
		if rdb == nil {
			return nil, errors.New("session auth requires redis")
		}
		return NewSessionResolver(rdb, cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

// TokenResolver issues self-contained HS256 JWTs. Tokens cannot be revoked
// before they expire.
type TokenResolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenResolver(secret string, ttl time.Duration) *TokenResolver {
	return &TokenResolver{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (r *TokenResolver) Mode() string { return config.AuthModeToken }

func (r *TokenResolver) Issue(_ context.Context, id Identity) (string, error) {
	if len(r.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := r.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(id.UserID), 10),
		"username": id.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(r.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

func (r *TokenResolver) Resolve(_ context.Context, artifact string) (Identity, error) {
	if artifact == "" {
		return Identity{}, models.NewUnauthorizedError("Authorization required")
	}

	token, err := jwt.Parse(artifact, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Identity{}, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return Identity{}, models.NewUnauthorizedError("Invalid user ID in token")
	}
	username, _ := claims["username"].(string)

	return Identity{UserID: uint(userID), Username: username}, nil
}

// Revoke is a no-op; a token stays valid until its exp claim.
func (r *TokenResolver) Revoke(context.Context, string) error { return nil }

// SessionResolver keeps identities server-side in Redis under an opaque id.
type SessionResolver struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionResolver(rdb *redis.Client, ttl time.Duration) *SessionResolver {
	return &SessionResolver{rdb: rdb, ttl: ttl}
}

func (r *SessionResolver) Mode() string { return config.AuthModeSession }

func (r *SessionResolver) Issue(ctx context.Context, id Identity) (string, error) {
	sid := uuid.NewString()
	payload, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+sid, payload, r.ttl).Err(); err != nil {
		return "", models.NewUpstreamError(err)
	}
	return sid, nil
}

func (r *SessionResolver) Resolve(ctx context.Context, artifact string) (Identity, error) {
	if artifact == "" {
		return Identity{}, models.NewUnauthorizedError("Authorization required")
	}
	raw, err := r.rdb.Get(ctx, sessionKeyPrefix+artifact).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, models.NewUnauthorizedError("Session expired or invalid")
	}
	if err != nil {
		return Identity{}, models.NewUpstreamError(err)
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil || id.UserID == 0 {
		return Identity{}, models.NewUnauthorizedError("Session expired or invalid")
	}
	return id, nil
}

func (r *SessionResolver) Revoke(ctx context.Context, artifact string) error {
	if artifact == "" {
		return nil
	}
	if err := r.rdb.Del(ctx, sessionKeyPrefix+artifact).Err(); err != nil {
		return models.NewUpstreamError(err)
	}
	return nil
}
