package domain

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// CounterField is the counter on the target that the vote increments.
func (v VoteType) CounterField() string {
	if v == VoteDown {
		return "downvotes"
	}
	return "upvotes"
}

// Vote records one caller's vote on one item. Its id is derived from the
// triple so a second vote by the same caller collides.
type Vote struct {
	Meta
	ItemID   string   `json:"itemId"`
	ItemType ItemType `json:"itemType"`
	VoteType VoteType `json:"voteType"`
}

// VoteID is the record id of userID's vote on an item.
func VoteID(itemType ItemType, itemID, userID string) string {
	return string(itemType) + "_" + itemID + "_" + userID
}
