package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askhub/askhub-server/internal/docstore"
)

func TestUser_Name(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{"display name wins", User{DisplayName: "Ada L", Username: "ada"}, "Ada L"},
		{"falls back to username", User{Username: "ada"}, "ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.Name())
		})
	}
}

func TestMeta_OwnedBy(t *testing.T) {
	uid := "u1"
	owned := Meta{UserID: &uid}
	anon := Meta{}

	assert.True(t, owned.OwnedBy("u1"))
	assert.False(t, owned.OwnedBy("u2"))
	assert.False(t, owned.OwnedBy(""))
	assert.False(t, anon.OwnedBy(""))
	assert.Empty(t, anon.Owner())
}

func TestVoteID(t *testing.T) {
	assert.Equal(t, "answer_a1_u9", VoteID(ItemAnswer, "a1", "u9"))
}

func TestAcceptedFirst(t *testing.T) {
	in := []*Answer{
		{Meta: Meta{ID: "a"}},
		{Meta: Meta{ID: "b"}},
		{Meta: Meta{ID: "c"}, IsAccepted: true},
		{Meta: Meta{ID: "d"}},
	}

	out := AcceptedFirst(in)

	got := make([]string, len(out))
	for i, a := range out {
		got[i] = a.ID
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, got)
	assert.Equal(t, "a", in[0].ID, "input untouched")
}

func TestTrimOldest(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var ns []Notification
	for i := range 5 {
		n := NewNotification(NotifyLike, "u", "u", "", "x", ItemQuestion, docstore.NewTimestamp(base.Add(time.Duration(i)*time.Minute)))
		ns = append(ns, n)
	}

	trimmed := TrimOldest(ns, 3)

	assert.Len(t, trimmed, 3)
	assert.Equal(t, ns[2].ID, trimmed[0].ID)
	assert.Equal(t, ns[4].ID, trimmed[2].ID)
	assert.Equal(t, ns, TrimOldest(ns, 10))
}

func TestFeedSort(t *testing.T) {
	assert.Equal(t, "createdAt", FeedSort("").Field())
	assert.Equal(t, "views", FeedTrending.Field())
	assert.Equal(t, "upvotes", FeedHot.Field())
	assert.False(t, FeedSort("random").Valid())
}

func TestReply_ToggleLike(t *testing.T) {
	r := Reply{Likes: []string{}}

	assert.True(t, r.ToggleLike("u1"))
	assert.Equal(t, []string{"u1"}, r.Likes)
	assert.False(t, r.ToggleLike("u1"))
	assert.Empty(t, r.Likes)
}
