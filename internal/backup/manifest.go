package backup

import (
	"path"
	"time"

	"github.com/askhub/askhub-server/internal/domain"
)

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Collections lists every collection a backup carries, in restore order.
var Collections = []string{
	domain.CollectionUsers,
	domain.CollectionUsernames,
	domain.CollectionTags,
	domain.CollectionQuestions,
	domain.CollectionAnswers,
	domain.CollectionComments,
	domain.CollectionVotes,
}

const manifestFile = "manifest.json"

func collectionFile(name string) string {
	return path.Join("collections", name+".jsonl")
}

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version       string         `json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	ServerVersion string         `json:"serverVersion,omitempty"`
	Counts        map[string]int `json:"counts"`
}

// Record is one stored document as written to a collection file.
type Record struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}
