package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
)

func (s *Server) registerAnswerRoutes() {
	huma.Register(s.api, op("listAnswers", http.MethodGet, "/api/v1/questions/{id}/answers",
		"List a question's answers", "Answers"), s.handleListAnswers)

	huma.Register(s.api, op("postAnswer", http.MethodPost, "/api/v1/questions/{id}/answers",
		"Answer a question", "Answers", secured, created), s.handlePostAnswer)

	huma.Register(s.api, op("acceptAnswer", http.MethodPost, "/api/v1/answers/{id}/accept",
		"Accept an answer", "Answers", secured), s.handleAcceptAnswer)

	huma.Register(s.api, op("deleteAnswer", http.MethodDelete, "/api/v1/answers/{id}",
		"Delete an answer", "Answers", secured, noContent), s.handleDeleteAnswer)

	huma.Register(s.api, op("voteAnswer", http.MethodPost, "/api/v1/answers/{id}/votes",
		"Vote on an answer", "Votes", secured, created), s.handleVoteAnswer)

	if s.services.Drafts != nil {
		huma.Register(s.api, op("draftAnswer", http.MethodPost, "/api/v1/questions/{id}/draft-answer",
			"Draft an answer with the configured model", "Answers", secured), s.handleDraftAnswer)
	}
}

// === DTOs ===

// AnswerList is a question's answers, accepted first.
type AnswerList struct {
	Answers []*domain.Answer `json:"answers"`
}

// AnswersOutput wraps a list of answers.
type AnswersOutput struct {
	Body AnswerList
}

// PostAnswerInput wraps a new answer.
type PostAnswerInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body struct {
		Body string `json:"body" minLength:"1" maxLength:"30000" doc:"Answer text"`
	}
}

// AnswerIDInput addresses an answer.
type AnswerIDInput struct {
	ID string `path:"id" doc:"Answer ID"`
}

// AnswerDraft is a model-written answer the caller may edit and post.
type AnswerDraft struct {
	Body string `json:"body" doc:"Draft answer text in Markdown"`
}

// AnswerDraftOutput wraps a draft.
type AnswerDraftOutput struct {
	Body AnswerDraft
}

// AnswerOutput wraps one answer.
type AnswerOutput struct {
	Body *domain.Answer
}

// === Handlers ===

func (s *Server) handleListAnswers(ctx context.Context, input *QuestionIDInput) (*AnswersOutput, error) {
	answers, err := s.services.Answers.List(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AnswersOutput{Body: AnswerList{Answers: answers}}, nil
}

func (s *Server) handlePostAnswer(ctx context.Context, input *PostAnswerInput) (*AnswerOutput, error) {
	a, err := s.services.Answers.Post(ctx, input.ID, input.Body.Body)
	if err != nil {
		return nil, err
	}
	return &AnswerOutput{Body: a}, nil
}

func (s *Server) handleAcceptAnswer(ctx context.Context, input *AnswerIDInput) (*AnswerOutput, error) {
	a, err := s.services.Answers.Accept(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AnswerOutput{Body: a}, nil
}

func (s *Server) handleDeleteAnswer(ctx context.Context, input *AnswerIDInput) (*struct{}, error) {
	return nil, s.services.Answers.Delete(ctx, input.ID)
}

func (s *Server) handleVoteAnswer(ctx context.Context, input *VoteInput) (*VoteOutput, error) {
	v, err := s.services.Votes.Vote(ctx, domain.ItemAnswer, input.ID, input.Body.VoteType)
	if err != nil {
		return nil, err
	}
	return &VoteOutput{Body: v}, nil
}

func (s *Server) handleDraftAnswer(ctx context.Context, input *QuestionIDInput) (*AnswerDraftOutput, error) {
	draft, err := s.services.Drafts.DraftAnswer(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AnswerDraftOutput{Body: AnswerDraft{Body: draft}}, nil
}
