package domain

// Tag is a topic label. The record id is the normalized tag name.
// Count is the number of questions carrying the tag. It drifts upward between
// syncs because deletes never decrement it; TagService.Sync recomputes it.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Count       int64  `json:"count"`
}
