package auth

import (
	"context"
	"log/slog"
	"sync"

	"odinbook/internal/middleware"
	"odinbook/internal/models"
	"odinbook/internal/observability"
	"odinbook/internal/repository"
	"odinbook/internal/validation"
)

// Authenticator implements signup, login and logout.
type Authenticator struct {
	users    repository.UserRepository
	hasher   PasswordHasher
	resolver IdentityResolver

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one hash comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthenticator(users repository.UserRepository, hasher PasswordHasher, resolver IdentityResolver) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, resolver: resolver}
}

// Resolver returns the identity strategy in use.
func (a *Authenticator) Resolver() IdentityResolver {
	return a.resolver
}

// AuthenticateLocal checks a username/password pair. Unknown users and wrong
// passwords produce the same error.
func (a *Authenticator) AuthenticateLocal(ctx context.Context, username, password string) (Identity, *models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "Authenticator", "AuthenticateLocal")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("error").Inc()
		return Identity{}, nil, err
	}
	if user == nil {
		a.dummyOnce.Do(func() { a.dummyHash, _ = a.hasher.Hash("odinbook-dummy-password") })
		_ = a.hasher.Compare(a.dummyHash, password)
		observability.AuthAttempts.WithLabelValues("failure").Inc()
		err = models.NewInvalidCredentialsError()
		return Identity{}, nil, err
	}
	if cmpErr := a.hasher.Compare(user.PasswordHash, password); cmpErr != nil {
		observability.AuthAttempts.WithLabelValues("failure").Inc()
		err = models.NewInvalidCredentialsError()
		return Identity{}, nil, err
	}

	observability.AuthAttempts.WithLabelValues("success").Inc()
	return Identity{UserID: user.ID, Username: user.Username}, user, nil
}

// Login authenticates and issues the request artifact for the identity.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	id, user, err := a.AuthenticateLocal(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	artifact, err := a.resolver.Issue(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return user, artifact, nil
}

// Signup validates input, rejects taken usernames and stores a new user
// with empty social sets.
func (a *Authenticator) Signup(ctx context.Context, name, username, password string) (*models.User, error) {
	in, err := validation.ValidateSignup(name, username, password)
	if err != nil {
		return nil, err
	}

	existing, err := a.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(models.CodeDuplicateUsername, "Username already taken")
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewUpstreamError(err)
	}

	user := &models.User{
		Name:                   in.Name,
		Username:               in.Username,
		PasswordHash:           hash,
		Friends:                models.IDList{},
		FriendRequestsSent:     models.IDList{},
		FriendRequestsReceived: models.IDList{},
		Posts:                  models.IDList{},
	}
	// The unique index catches a concurrent signup that passed the check above.
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username))
	return user, nil
}

// Logout revokes the artifact. For tokens this does nothing.
func (a *Authenticator) Logout(ctx context.Context, artifact string) error {
	return a.resolver.Revoke(ctx, artifact)
}
