// Package domain holds askhub's record types.
package domain

import "github.com/askhub/askhub-server/internal/docstore"

// Meta is the ownership and timestamp snapshot the accessor stamps onto every
// caller-owned record at creation. It is not updated when the author later
// changes their profile.
type Meta struct {
	ID           string             `json:"id"`
	CreatedAt    docstore.Timestamp `json:"createdAt"`
	UpdatedAt    docstore.Timestamp `json:"updatedAt"`
	UserID       *string            `json:"userId"`
	Username     string             `json:"username"`
	UserPhotoURL *string            `json:"userPhotoURL"`
}

// OwnedBy reports whether the record was created by userID. Anonymous
// records are owned by nobody.
func (m *Meta) OwnedBy(userID string) bool {
	return m.UserID != nil && userID != "" && *m.UserID == userID
}

// Owner returns the author's id, or "" for anonymous records.
func (m *Meta) Owner() string {
	if m.UserID == nil {
		return ""
	}
	return *m.UserID
}

// ItemType names the kind of record a vote, comment or notification points at.
type ItemType string

const (
	ItemQuestion ItemType = "question"
	ItemAnswer   ItemType = "answer"
	ItemComment  ItemType = "comment"
)

// Valid reports whether t can be voted or commented on.
func (t ItemType) Valid() bool {
	return t == ItemQuestion || t == ItemAnswer
}

// Collection returns the collection records of this type live in.
func (t ItemType) Collection() string {
	switch t {
	case ItemQuestion:
		return CollectionQuestions
	case ItemAnswer:
		return CollectionAnswers
	case ItemComment:
		return CollectionComments
	}
	return ""
}

// Collection names.
const (
	CollectionQuestions = "questions"
	CollectionAnswers   = "answers"
	CollectionTags      = "tags"
	CollectionComments  = "comments"
	CollectionUsers     = "users"
	CollectionUsernames = "usernames"
	CollectionVotes     = "votes"
)
