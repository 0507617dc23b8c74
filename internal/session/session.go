// Package session carries the caller's identity through a request.
//
// A Session is attached to the request context by the API middleware and read
// back by anything that needs to know who is acting. An absent session is an
// anonymous caller.
package session

import (
	"context"

	"github.com/askhub/askhub-server/internal/domain"
)

// AnonymousUsername is recorded on records written by an unauthenticated caller.
const AnonymousUsername = "anonymous"

// Identity is the verified principal behind a request.
type Identity struct {
	ID          string
	DisplayName string
	PhotoURL    *string
}

// Profile is the caller's application profile as loaded at request start.
type Profile struct {
	Username string
	Role     domain.Role
	// Notifications is the inbox as loaded at request start.
	Notifications []domain.Notification
}

// Session is the read-only view of the caller.
type Session struct {
	Identity *Identity
	Profile  *Profile
}

// Authenticated reports whether the session has a verified identity.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// UserID returns the caller's id, or "" when anonymous.
func (s Session) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// Username returns the profile username, falling back to the display name
// and then to AnonymousUsername.
func (s Session) Username() string {
	if s.Profile != nil && s.Profile.Username != "" {
		return s.Profile.Username
	}
	if s.Identity != nil && s.Identity.DisplayName != "" {
		return s.Identity.DisplayName
	}
	return AnonymousUsername
}

// PhotoURL returns the identity photo, or nil.
func (s Session) PhotoURL() *string {
	if s.Identity == nil {
		return nil
	}
	return s.Identity.PhotoURL
}

// IsAdmin reports whether the caller holds the admin role.
func (s Session) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == domain.RoleAdmin
}

type ctxKey struct{}

// With returns a context carrying s.
func With(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the session in ctx, or an anonymous session.
func From(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}

// Provider resolves the current caller. Record accessors consume it to stamp
// ownership metadata without knowing how sessions are established.
type Provider interface {
	Current(ctx context.Context) Session
}

// ContextProvider reads the session attached with With.
type ContextProvider struct{}

// Current implements Provider.
func (ContextProvider) Current(ctx context.Context) Session {
	return From(ctx)
}

// Static always returns the same session. askctl uses it to act as a
// provisioned user.
type Static Session

// Current implements Provider.
func (s Static) Current(context.Context) Session {
	return Session(s)
}
