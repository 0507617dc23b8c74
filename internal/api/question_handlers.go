package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/service"
)

func (s *Server) registerQuestionRoutes() {
	huma.Register(s.api, op("listQuestions", http.MethodGet, "/api/v1/questions",
		"List the question feed", "Questions"), s.handleListQuestions)

	huma.Register(s.api, op("askQuestion", http.MethodPost, "/api/v1/questions",
		"Ask a question", "Questions", secured, created), s.handleAskQuestion)

	huma.Register(s.api, op("getQuestion", http.MethodGet, "/api/v1/questions/{id}",
		"Get a question with its answers", "Questions"), s.handleGetQuestion)

	huma.Register(s.api, op("updateQuestion", http.MethodPatch, "/api/v1/questions/{id}",
		"Edit a question", "Questions", secured), s.handleUpdateQuestion)

	huma.Register(s.api, op("deleteQuestion", http.MethodDelete, "/api/v1/questions/{id}",
		"Delete a question", "Questions", secured, noContent), s.handleDeleteQuestion)

	huma.Register(s.api, op("voteQuestion", http.MethodPost, "/api/v1/questions/{id}/votes",
		"Vote on a question", "Votes", secured, created), s.handleVoteQuestion)
}

// === DTOs ===

// ListQuestionsInput selects the feed ordering.
type ListQuestionsInput struct {
	Sort  string `query:"sort" enum:"latest,trending,hot" default:"latest" doc:"Feed ordering"`
	Limit int    `query:"limit" minimum:"0" maximum:"50" doc:"Maximum results"`
}

// QuestionList is a page of questions.
type QuestionList struct {
	Questions []*domain.Question `json:"questions"`
}

// QuestionsOutput wraps a list of questions.
type QuestionsOutput struct {
	Body QuestionList
}

// AskQuestionInput wraps the ask request.
type AskQuestionInput struct {
	Body service.AskInput
}

// QuestionOutput wraps one question.
type QuestionOutput struct {
	Body *domain.Question
}

// QuestionIDInput addresses a question.
type QuestionIDInput struct {
	ID string `path:"id" doc:"Question ID"`
}

// QuestionDetail is a question page: the question, its answers and the
// caller's vote.
type QuestionDetail struct {
	Question *domain.Question `json:"question"`
	Answers  []*domain.Answer `json:"answers"`
	Vote     *domain.Vote     `json:"vote,omitempty"`
}

// QuestionDetailOutput wraps a question page.
type QuestionDetailOutput struct {
	Body QuestionDetail
}

// UpdateQuestionInput wraps the edit request.
type UpdateQuestionInput struct {
	ID   string `path:"id" doc:"Question ID"`
	Body service.UpdateQuestionInput
}

// VoteRequest is a vote as submitted.
type VoteRequest struct {
	VoteType domain.VoteType `json:"voteType" enum:"upvote,downvote" doc:"Vote direction"`
}

// VoteInput wraps a vote on an item.
type VoteInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body VoteRequest
}

// VoteOutput wraps a recorded vote.
type VoteOutput struct {
	Body *domain.Vote
}

// === Handlers ===

func (s *Server) handleListQuestions(ctx context.Context, input *ListQuestionsInput) (*QuestionsOutput, error) {
	qs, err := s.services.Questions.Feed(ctx, domain.FeedSort(input.Sort), input.Limit)
	if err != nil {
		return nil, err
	}
	return &QuestionsOutput{Body: QuestionList{Questions: qs}}, nil
}

func (s *Server) handleAskQuestion(ctx context.Context, input *AskQuestionInput) (*QuestionOutput, error) {
	q, err := s.services.Questions.Ask(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &QuestionOutput{Body: q}, nil
}

func (s *Server) handleGetQuestion(ctx context.Context, input *QuestionIDInput) (*QuestionDetailOutput, error) {
	q, err := s.services.Questions.View(ctx, input.ID, callerKey(ctx))
	if err != nil {
		return nil, err
	}
	answers, err := s.services.Answers.List(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	vote, err := s.services.Votes.Get(ctx, domain.ItemQuestion, q.ID)
	if err != nil {
		return nil, err
	}
	return &QuestionDetailOutput{Body: QuestionDetail{Question: q, Answers: answers, Vote: vote}}, nil
}

func (s *Server) handleUpdateQuestion(ctx context.Context, input *UpdateQuestionInput) (*QuestionOutput, error) {
	q, err := s.services.Questions.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &QuestionOutput{Body: q}, nil
}

func (s *Server) handleDeleteQuestion(ctx context.Context, input *QuestionIDInput) (*struct{}, error) {
	return nil, s.services.Questions.Delete(ctx, input.ID)
}

func (s *Server) handleVoteQuestion(ctx context.Context, input *VoteInput) (*VoteOutput, error) {
	v, err := s.services.Votes.Vote(ctx, domain.ItemQuestion, input.ID, input.Body.VoteType)
	if err != nil {
		return nil, err
	}
	return &VoteOutput{Body: v}, nil
}
