package domain

import (
	"slices"

	"github.com/google/uuid"

	"github.com/askhub/askhub-server/internal/docstore"
)

// Comment is attached to a question or an answer. Replies are embedded and
// edited under a per-comment lock.
type Comment struct {
	Meta
	ParentID   string   `json:"parentId"`
	ParentType ItemType `json:"parentType"`
	Body       string   `json:"body"`
	Replies    []Reply  `json:"replies"`
	Likes      []string `json:"likes"`
}

// LikedBy reports whether userID has liked the comment.
func (c *Comment) LikedBy(userID string) bool {
	return slices.Contains(c.Likes, userID)
}

// FindReply returns the index of the reply with id, or -1.
func (c *Comment) FindReply(id string) int {
	return slices.IndexFunc(c.Replies, func(r Reply) bool { return r.ID == id })
}

// Reply is a response embedded in a comment.
type Reply struct {
	ID           string             `json:"id"`
	CommentID    string             `json:"commentId"`
	Body         string             `json:"body"`
	UserID       string             `json:"userId"`
	Username     string             `json:"username"`
	UserPhotoURL *string            `json:"userPhotoURL"`
	Likes        []string           `json:"likes"`
	CreatedAt    docstore.Timestamp `json:"createdAt"`
}

// NewReply builds a reply with a fresh id.
func NewReply(commentID, body, userID, username string, photo *string, at docstore.Timestamp) Reply {
	return Reply{
		ID:           uuid.NewString(),
		CommentID:    commentID,
		Body:         body,
		UserID:       userID,
		Username:     username,
		UserPhotoURL: photo,
		Likes:        []string{},
		CreatedAt:    at,
	}
}

// ToggleLike flips userID's like and reports the new state.
func (r *Reply) ToggleLike(userID string) bool {
	if i := slices.Index(r.Likes, userID); i >= 0 {
		r.Likes = slices.Delete(r.Likes, i, i+1)
		return false
	}
	r.Likes = append(r.Likes, userID)
	return true
}
