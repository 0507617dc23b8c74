package domain

import "slices"

// Tag and text limits for questions.
const (
	MinTitleLength = 15
	MaxTitleLength = 150
	MinBodyLength  = 30
	MinTags        = 1
	MaxTags        = 5
)

// Question is a posted question. TitleLowercase mirrors Title for prefix
// search and must be recomputed whenever Title changes.
type Question struct {
	Meta
	Title          string   `json:"title"`
	TitleLowercase string   `json:"titleLowercase"`
	Body           string   `json:"body"`
	Tags           []string `json:"tags"`
	Views          int64    `json:"views"`
	AnswerCount    int64    `json:"answerCount"`
	Upvotes        int64    `json:"upvotes"`
	Downvotes      int64    `json:"downvotes"`
	IsSolved       bool     `json:"isSolved"`
}

// Score is upvotes minus downvotes.
func (q *Question) Score() int64 {
	return q.Upvotes - q.Downvotes
}

// HasTag reports whether the question carries tag.
func (q *Question) HasTag(tag string) bool {
	return slices.Contains(q.Tags, tag)
}

// FeedSort selects the ordering of the question feed.
type FeedSort string

const (
	FeedLatest   FeedSort = "latest"
	FeedTrending FeedSort = "trending"
	FeedHot      FeedSort = "hot"
)

// Field returns the record field the feed orders by.
func (s FeedSort) Field() string {
	switch s {
	case FeedTrending:
		return "views"
	case FeedHot:
		return "upvotes"
	default:
		return "createdAt"
	}
}

// Valid reports whether s is a known sort. The empty sort means latest.
func (s FeedSort) Valid() bool {
	switch s {
	case "", FeedLatest, FeedTrending, FeedHot:
		return true
	}
	return false
}
