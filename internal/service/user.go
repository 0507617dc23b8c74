package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/id"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/session"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
)

// RegisterInput provisions a user. UserID is generated when empty.
type RegisterInput struct {
	UserID      string      `json:"userId,omitempty"`
	Email       string      `json:"email" validate:"required,email"`
	Username    string      `json:"username" validate:"required,username"`
	DisplayName string      `json:"displayName" validate:"max=100"`
	Role        domain.Role `json:"role,omitempty"`
}

// UpdateProfileInput holds the profile fields a user may change. Nil
// fields are left alone.
type UpdateProfileInput struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitnil,max=100"`
	Bio         *string `json:"bio,omitempty" validate:"omitnil,max=500"`
	PhotoURL    *string `json:"photoURL,omitempty" validate:"omitnil,url"`
}

// UserProfile is a user with their latest activity.
type UserProfile struct {
	User      *domain.User       `json:"user"`
	Questions []*domain.Question `json:"questions"`
	Answers   []*domain.Answer   `json:"answers"`
}

// UserService provisions users and serves profiles. It also resolves
// sessions for the API middleware.
type UserService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(st *store.Store, v *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{store: st, validator: v, logger: discardIfNil(logger)}
}

// Register reserves the username and creates the user record. A taken
// username is a CONFLICT.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validationf("unknown role %q", in.Role)
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	username, _ := normalize.Username(in.Username)

	userID := in.UserID
	if userID == "" {
		generated, err := id.Generate("usr")
		if err != nil {
			return nil, apperrors.Internal("generate user id").WithCause(err)
		}
		userID = generated
	}

	_, err := s.store.Usernames.CreateWithID(ctx, username, &domain.UsernameClaim{ID: username, UID: userID})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeConflict {
			return nil, apperrors.Conflictf("username %q is taken", username)
		}
		return nil, err
	}

	u, err := s.store.Users.CreateWithID(ctx, userID, &domain.User{
		ID:            userID,
		Email:         in.Email,
		Username:      username,
		DisplayName:   in.DisplayName,
		Role:          in.Role,
		Notifications: []domain.Notification{},
	})
	if err != nil {
		if delErr := s.store.Usernames.Delete(ctx, username); delErr != nil {
			s.logger.Error("failed to release username claim",
				"username", username,
				"error", delErr,
			)
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// Get returns a user. Notifications are only included for the user
// themselves.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return visibleTo(u, session.From(ctx).UserID()), nil
}

// List returns users, newest first.
func (s *UserService) List(ctx context.Context, limit int) ([]*domain.User, error) {
	users, err := s.store.Users.Query(ctx, nil,
		store.OrderBy("createdAt", docstore.Desc),
		clampLimit(limit, DefaultLimit, MaxLimit),
	)
	if err != nil {
		return nil, err
	}
	caller := session.From(ctx).UserID()
	for i, u := range users {
		users[i] = visibleTo(u, caller)
	}
	return users, nil
}

// UpdateProfile changes the caller's own profile. Records the caller
// already authored keep the name and photo they were created with.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*domain.User, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if in.DisplayName != nil {
		fields["displayName"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		fields["bio"] = strings.TrimSpace(*in.Bio)
	}
	if in.PhotoURL != nil {
		fields["photoURL"] = *in.PhotoURL
	}
	if len(fields) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}

	if _, err := s.user(ctx, sess.UserID()); err != nil {
		return nil, err
	}
	if _, err := s.store.Users.Update(ctx, sess.UserID(), fields); err != nil {
		return nil, err
	}
	return s.user(ctx, sess.UserID())
}

// Profile returns a user with their latest questions and answers.
func (s *UserService) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &UserProfile{User: visibleTo(u, session.From(ctx).UserID())}

	byAuthor := []store.Condition{store.Where("userId", docstore.OpEqual, userID)}
	newest := []store.Order{
		{Field: "createdAt", Direction: docstore.Desc},
		{Field: docstore.DocumentID, Direction: docstore.Desc},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qs, err := s.store.Questions.QueryOrdered(gctx, byAuthor, newest, ProfileItems)
		p.Questions = qs
		return err
	})
	g.Go(func() error {
		as, err := s.store.Answers.QueryOrdered(gctx, byAuthor, newest, ProfileItems)
		p.Answers = as
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadSession builds the session for a verified user id. An id with no user
// record is UNAUTHORIZED.
func (s *UserService) LoadSession(ctx context.Context, userID string) (session.Session, error) {
	u, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		return session.Session{}, err
	}
	if u == nil {
		return session.Session{}, apperrors.Unauthorized("unknown user")
	}
	return session.Session{
		Identity: &session.Identity{
			ID:          u.ID,
			DisplayName: u.Name(),
			PhotoURL:    u.PhotoURL,
		},
		Profile: &session.Profile{
			Username:      u.Username,
			Role:          u.Role,
			Notifications: u.Notifications,
		},
	}, nil
}

// ResolveUsername returns the user id holding username.
func (s *UserService) ResolveUsername(ctx context.Context, username string) (string, error) {
	lower, ok := normalize.Username(username)
	if !ok {
		return "", apperrors.Validationf("invalid username %q", username)
	}
	claim, err := s.store.Usernames.Get(ctx, lower)
	if err != nil {
		return "", err
	}
	if claim == nil {
		return "", apperrors.NotFoundf("user %q not found", lower)
	}
	return claim.UID, nil
}

func (s *UserService) user(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.NotFound("user not found")
	}
	u, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFoundf("user %s not found", userID)
	}
	return u, nil
}

// visibleTo hides the inbox from everyone but its owner.
func visibleTo(u *domain.User, callerID string) *domain.User {
	if u.ID == callerID {
		return u
	}
	out := *u
	out.Notifications = nil
	return &out
}
