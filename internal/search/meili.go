package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meilisearch/meilisearch-go"

	"github.com/askhub/askhub-server/internal/domain"
)

const meiliQuestionsIndex = "questions"

// MeiliMirror copies questions into a Meilisearch index so an external
// frontend can run instant search against it. It is write-only from the
// server's point of view.
type MeiliMirror struct {
	client meilisearch.ServiceManager
	logger *slog.Logger
}

// NewMeiliMirror connects to host and configures the questions index.
// Settings failures are logged; the mirror still accepts documents.
func NewMeiliMirror(host, apiKey string, logger *slog.Logger) *MeiliMirror {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &MeiliMirror{
		client: meilisearch.New(host, meilisearch.WithAPIKey(apiKey)),
		logger: logger,
	}
	m.initIndex()
	return m
}

func (m *MeiliMirror) initIndex() {
	filterable := []any{"tags", "author"}
	if _, err := m.client.Index(meiliQuestionsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("failed to update meilisearch filterable attributes", "error", err)
	}

	sortable := []string{"created_at", "views", "upvotes"}
	if _, err := m.client.Index(meiliQuestionsIndex).UpdateSortableAttributes(&sortable); err != nil {
		m.logger.Warn("failed to update meilisearch sortable attributes", "error", err)
	}
}

// IndexQuestion implements Indexer.
func (m *MeiliMirror) IndexQuestion(ctx context.Context, q *domain.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := QuestionToDocument(q)
	task, err := m.client.Index(meiliQuestionsIndex).AddDocuments([]*QuestionDocument{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("meilisearch add %s: %w", q.ID, err)
	}
	m.logger.Debug("queued meilisearch document", "question_id", q.ID, "task_uid", task.TaskUID)
	return nil
}

// DeleteQuestion implements Indexer.
func (m *MeiliMirror) DeleteQuestion(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.client.Index(meiliQuestionsIndex).DeleteDocument(id); err != nil {
		return fmt.Errorf("meilisearch delete %s: %w", id, err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
