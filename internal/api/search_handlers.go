package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, op("searchQuestions", http.MethodGet, "/api/v1/search",
		"Search questions by title prefix and tag", "Search"), s.handleSearch)
}

// SearchInput is a search request. A blank q returns no results.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search term"`
	Limit int    `query:"limit" minimum:"0" maximum:"50" doc:"Maximum results"`
}

// SearchResults are the matches for a term, best first.
type SearchResults struct {
	Query   string             `json:"query"`
	Results []*domain.Question `json:"results"`
}

// SearchOutput wraps search results.
type SearchOutput struct {
	Body SearchResults
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	results, err := s.services.Search.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: SearchResults{Query: input.Query, Results: results}}, nil
}
