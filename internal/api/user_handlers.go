package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/service"
	"github.com/askhub/askhub-server/internal/session"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, op("listUsers", http.MethodGet, "/api/v1/users",
		"List users", "Users"), s.handleListUsers)

	huma.Register(s.api, op("getCurrentUser", http.MethodGet, "/api/v1/users/me",
		"Get the signed-in user", "Users", secured), s.handleGetCurrentUser)

	huma.Register(s.api, op("updateCurrentUser", http.MethodPatch, "/api/v1/users/me",
		"Update the signed-in user's profile", "Users", secured), s.handleUpdateCurrentUser)

	huma.Register(s.api, op("getUserProfile", http.MethodGet, "/api/v1/users/{id}",
		"Get a user's profile", "Users"), s.handleGetUserProfile)
}

// ListUsersInput pages the user list.
type ListUsersInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"50" doc:"Maximum results"`
}

// UserList is a page of users.
type UserList struct {
	Users []*domain.User `json:"users"`
}

// UsersOutput wraps a list of users.
type UsersOutput struct {
	Body UserList
}

// UserOutput wraps one user.
type UserOutput struct {
	Body *domain.User
}

// UpdateProfileInput wraps a profile edit.
type UpdateProfileInput struct {
	Body service.UpdateProfileInput
}

// UserIDInput addresses a user.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// UserProfileOutput wraps a profile page.
type UserProfileOutput struct {
	Body *service.UserProfile
}

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*UsersOutput, error) {
	users, err := s.services.Users.List(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &UsersOutput{Body: UserList{Users: users}}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	sess := session.From(ctx)
	if !sess.Authenticated() {
		return nil, apperrors.Unauthorized("sign in required")
	}
	u, err := s.services.Users.Get(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: u}, nil
}

func (s *Server) handleUpdateCurrentUser(ctx context.Context, input *UpdateProfileInput) (*UserOutput, error) {
	u, err := s.services.Users.UpdateProfile(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: u}, nil
}

func (s *Server) handleGetUserProfile(ctx context.Context, input *UserIDInput) (*UserProfileOutput, error) {
	p, err := s.services.Users.Profile(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfileOutput{Body: p}, nil
}
