package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, op("listTags", http.MethodGet, "/api/v1/tags",
		"List popular tags", "Tags"), s.handleListTags)

	huma.Register(s.api, op("getTag", http.MethodGet, "/api/v1/tags/{name}",
		"Get a tag", "Tags"), s.handleGetTag)

	huma.Register(s.api, op("listTagQuestions", http.MethodGet, "/api/v1/tags/{name}/questions",
		"List questions with a tag", "Tags"), s.handleListTagQuestions)

	huma.Register(s.api, op("syncTags", http.MethodPost, "/api/v1/admin/tags/sync",
		"Recount tag usage", "Admin", secured), s.handleSyncTags)
}

// ListTagsInput pages the tag list.
type ListTagsInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Maximum results"`
}

// TagList is a page of tags, most used first.
type TagList struct {
	Tags []*domain.Tag `json:"tags"`
}

// TagsOutput wraps a list of tags.
type TagsOutput struct {
	Body TagList
}

// TagNameInput addresses a tag.
type TagNameInput struct {
	Name string `path:"name" doc:"Tag name"`
}

// TagOutput wraps one tag.
type TagOutput struct {
	Body *domain.Tag
}

// TagQuestionsInput pages a tag's questions.
type TagQuestionsInput struct {
	Name  string `path:"name" doc:"Tag name"`
	Limit int    `query:"limit" minimum:"0" maximum:"50" doc:"Maximum results"`
}

// SyncTagsOutput wraps a sync report.
type SyncTagsOutput struct {
	Body service.SyncReport
}

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*TagsOutput, error) {
	tags, err := s.services.Tags.List(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return &TagsOutput{Body: TagList{Tags: tags}}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagNameInput) (*TagOutput, error) {
	tag, err := s.services.Tags.Get(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleListTagQuestions(ctx context.Context, input *TagQuestionsInput) (*QuestionsOutput, error) {
	qs, err := s.services.Tags.Questions(ctx, input.Name, input.Limit)
	if err != nil {
		return nil, err
	}
	return &QuestionsOutput{Body: QuestionList{Questions: qs}}, nil
}

func (s *Server) handleSyncTags(ctx context.Context, _ *struct{}) (*SyncTagsOutput, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	report, err := s.services.Tags.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncTagsOutput{Body: report}, nil
}
