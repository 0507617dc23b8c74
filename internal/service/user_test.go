package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/validation"
)

func setupTestUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(setupTestStore(t), validation.New(), nil)
}

func TestUserService_Register(t *testing.T) {
	svc := setupTestUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email:       "ada@example.com",
		Username:    "Ada_L",
		DisplayName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada_l", u.Username)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotNil(t, u.Notifications)

	claimed, err := svc.ResolveUsername(ctx, "ADA_L")
	require.NoError(t, err)
	assert.Equal(t, u.ID, claimed)

	_, err = svc.Register(ctx, RegisterInput{Email: "other@example.com", Username: "ada_l"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserService_RegisterRejects(t *testing.T) {
	svc := setupTestUserService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "nope", Username: "valid_name"}},
		{"bad username", RegisterInput{Email: "a@example.com", Username: "no spaces"}},
		{"short username", RegisterInput{Email: "a@example.com", Username: "ab"}},
		{"unknown role", RegisterInput{Email: "a@example.com", Username: "valid_name", Role: "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestUserService_RegisterReleasesClaimOnFailure(t *testing.T) {
	svc := setupTestUserService(t)
	ctx := context.Background()
	_, err := svc.store.Users.CreateWithID(ctx, "taken-id", &domain.User{ID: "taken-id"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{UserID: "taken-id", Email: "a@example.com", Username: "grace"})
	require.Error(t, err)

	claim, err := svc.store.Usernames.Get(ctx, "grace")
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestUserService_LoadSession(t *testing.T) {
	svc := setupTestUserService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)

	sess, err := svc.LoadSession(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, u.ID, sess.UserID())
	assert.Equal(t, "admin", sess.Username())
	assert.True(t, sess.IsAdmin())

	_, err = svc.LoadSession(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestUserService_ProfileHidesInboxFromOthers(t *testing.T) {
	svc := setupTestUserService(t)
	st := svc.store
	alice := createTestUser(t, st, "alice", "alice", domain.RoleUser)
	bob := createTestUser(t, st, "bob", "bob", domain.RoleUser)

	_, err := st.Users.AddToSet(context.Background(), "alice", "notifications",
		domain.NewNotification(domain.NotifyLike, "bob", "bob", "bob liked your comment", "c1",
			domain.ItemComment, docstore.NewTimestamp(time.Now())))
	require.NoError(t, err)

	for i := range ProfileItems + 2 {
		q := askTestQuestion(t, st, alice, "Question number "+string(rune('A'+i))+" by alice", "go")
		_, err := NewAnswerService(st, nil, validation.New(), nil).Post(alice, q.ID, "self answer")
		require.NoError(t, err)
	}

	own, err := svc.Profile(alice, "alice")
	require.NoError(t, err)
	assert.Len(t, own.User.Notifications, 1)
	assert.Len(t, own.Questions, ProfileItems)
	assert.Len(t, own.Answers, ProfileItems)

	seen, err := svc.Profile(bob, "alice")
	require.NoError(t, err)
	assert.Nil(t, seen.User.Notifications)

	_, err = svc.Profile(bob, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc := setupTestUserService(t)
	alice := createTestUser(t, svc.store, "alice", "alice", domain.RoleUser)

	name := "  Alice A. "
	photo := "https://example.com/a.png"
	u, err := svc.UpdateProfile(alice, UpdateProfileInput{DisplayName: &name, PhotoURL: &photo})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", u.DisplayName)
	require.NotNil(t, u.PhotoURL)
	assert.Equal(t, photo, *u.PhotoURL)

	bad := "not a url"
	_, err = svc.UpdateProfile(alice, UpdateProfileInput{PhotoURL: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpdateProfile(alice, UpdateProfileInput{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpdateProfile(context.Background(), UpdateProfileInput{DisplayName: &name})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
