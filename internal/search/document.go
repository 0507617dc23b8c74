package search

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/normalize"
)

// QuestionDocument is the indexed form of a question. Only the id is needed
// back from a hit; the question itself is re-read from the store.
type QuestionDocument struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	TitleLower string   `json:"title_lower"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Author     string   `json:"author"`
	Views      int64    `json:"views"`
	Upvotes    int64    `json:"upvotes"`
	CreatedAt  int64    `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map keyed by the mapped field names.
func (d *QuestionDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"title":       d.Title,
		"title_lower": d.TitleLower,
		"created_at":  d.CreatedAt,
		"views":       d.Views,
		"upvotes":     d.Upvotes,
	}
	if d.Body != "" {
		m["body"] = d.Body
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	return m
}

var sanitizer = bluemonday.StrictPolicy()

// CleanText strips markup from user text so only readable words get indexed.
func CleanText(content string) string {
	// Block boundaries become spaces so adjacent paragraphs don't merge.
	r := strings.NewReplacer("</p>", " ", "<br>", " ", "<br/>", " ", "</div>", " ", "</li>", " ")
	content = r.Replace(content)

	clean := html.UnescapeString(sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(clean), " ")
}

// QuestionToDocument converts a question to its indexed form.
func QuestionToDocument(q *domain.Question) *QuestionDocument {
	title := CleanText(q.Title)
	return &QuestionDocument{
		ID:         q.ID,
		Title:      title,
		TitleLower: normalize.Lower(title),
		Body:       CleanText(q.Body),
		Tags:       q.Tags,
		Author:     q.Username,
		Views:      q.Views,
		Upvotes:    q.Upvotes,
		CreatedAt:  q.CreatedAt.UnixMilli(),
	}
}
