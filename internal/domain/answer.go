package domain

import "slices"

// Answer is a reply to a question. At most one answer per question is
// accepted, and acceptance is never undone.
type Answer struct {
	Meta
	QuestionID string `json:"questionId"`
	Body       string `json:"body"`
	Upvotes    int64  `json:"upvotes"`
	Downvotes  int64  `json:"downvotes"`
	IsAccepted bool   `json:"isAccepted"`
}

// AcceptedFirst moves the accepted answer to the front, keeping the relative
// order of the rest.
func AcceptedFirst(answers []*Answer) []*Answer {
	out := slices.Clone(answers)
	slices.SortStableFunc(out, func(a, b *Answer) int {
		switch {
		case a.IsAccepted == b.IsAccepted:
			return 0
		case a.IsAccepted:
			return -1
		default:
			return 1
		}
	})
	return out
}
