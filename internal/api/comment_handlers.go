package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
)

func (s *Server) registerCommentRoutes() {
	for _, parent := range []struct {
		itemType domain.ItemType
		plural   string
		label    string
	}{
		{domain.ItemQuestion, "questions", "Question"},
		{domain.ItemAnswer, "answers", "Answer"},
	} {
		huma.Register(s.api, op("list"+parent.label+"Comments", http.MethodGet,
			"/api/v1/"+parent.plural+"/{id}/comments",
			"List comments on a "+string(parent.itemType), "Comments"),
			s.listComments(parent.itemType))

		huma.Register(s.api, op("add"+parent.label+"Comment", http.MethodPost,
			"/api/v1/"+parent.plural+"/{id}/comments",
			"Comment on a "+string(parent.itemType), "Comments", secured, created),
			s.addComment(parent.itemType))
	}

	huma.Register(s.api, op("editComment", http.MethodPatch, "/api/v1/comments/{id}",
		"Edit a comment", "Comments", secured), s.handleEditComment)

	huma.Register(s.api, op("deleteComment", http.MethodDelete, "/api/v1/comments/{id}",
		"Delete a comment", "Comments", secured, noContent), s.handleDeleteComment)

	huma.Register(s.api, op("likeComment", http.MethodPost, "/api/v1/comments/{id}/like",
		"Like or unlike a comment", "Comments", secured), s.handleToggleCommentLike)

	huma.Register(s.api, op("replyToComment", http.MethodPost, "/api/v1/comments/{id}/replies",
		"Reply to a comment", "Comments", secured, created), s.handleReply)

	huma.Register(s.api, op("deleteReply", http.MethodDelete, "/api/v1/comments/{id}/replies/{replyId}",
		"Delete a reply", "Comments", secured, noContent), s.handleDeleteReply)

	huma.Register(s.api, op("likeReply", http.MethodPost, "/api/v1/comments/{id}/replies/{replyId}/like",
		"Like or unlike a reply", "Comments", secured), s.handleToggleReplyLike)
}

// === DTOs ===

// CommentBody is the text of a comment or reply.
type CommentBody struct {
	Body string `json:"body" maxLength:"2000" doc:"Comment text"`
}

// CommentParentInput addresses the item being commented on.
type CommentParentInput struct {
	ID string `path:"id" doc:"Question or answer ID"`
}

// AddCommentInput wraps a new comment.
type AddCommentInput struct {
	ID   string `path:"id" doc:"Question or answer ID"`
	Body CommentBody
}

// CommentList is the comment thread on an item, oldest first.
type CommentList struct {
	Comments []*domain.Comment `json:"comments"`
}

// CommentsOutput wraps a thread of comments.
type CommentsOutput struct {
	Body CommentList
}

// CommentIDInput addresses a comment.
type CommentIDInput struct {
	ID string `path:"id" doc:"Comment ID"`
}

// EditCommentInput wraps a comment edit.
type EditCommentInput struct {
	ID   string `path:"id" doc:"Comment ID"`
	Body CommentBody
}

// CommentOutput wraps one comment.
type CommentOutput struct {
	Body *domain.Comment
}

// ReplyInput wraps a new reply.
type ReplyInput struct {
	ID   string `path:"id" doc:"Comment ID"`
	Body CommentBody
}

// ReplyOutput wraps one reply.
type ReplyOutput struct {
	Body *domain.Reply
}

// ReplyIDInput addresses a reply within a comment.
type ReplyIDInput struct {
	ID      string `path:"id" doc:"Comment ID"`
	ReplyID string `path:"replyId" doc:"Reply ID"`
}

// LikeState reports whether the caller now likes the item.
type LikeState struct {
	Liked bool `json:"liked"`
}

// LikeOutput wraps the like state after a toggle.
type LikeOutput struct {
	Body LikeState
}

// === Handlers ===

func (s *Server) listComments(parentType domain.ItemType) func(context.Context, *CommentParentInput) (*CommentsOutput, error) {
	return func(ctx context.Context, input *CommentParentInput) (*CommentsOutput, error) {
		comments, err := s.services.Comments.List(ctx, parentType, input.ID)
		if err != nil {
			return nil, err
		}
		return &CommentsOutput{Body: CommentList{Comments: comments}}, nil
	}
}

func (s *Server) addComment(parentType domain.ItemType) func(context.Context, *AddCommentInput) (*CommentOutput, error) {
	return func(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
		c, err := s.services.Comments.Add(ctx, parentType, input.ID, input.Body.Body)
		if err != nil {
			return nil, err
		}
		return &CommentOutput{Body: c}, nil
	}
}

func (s *Server) handleEditComment(ctx context.Context, input *EditCommentInput) (*CommentOutput, error) {
	c, err := s.services.Comments.Edit(ctx, input.ID, input.Body.Body)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: c}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *CommentIDInput) (*struct{}, error) {
	return nil, s.services.Comments.Delete(ctx, input.ID)
}

func (s *Server) handleToggleCommentLike(ctx context.Context, input *CommentIDInput) (*LikeOutput, error) {
	liked, err := s.services.Comments.ToggleLike(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LikeOutput{Body: LikeState{Liked: liked}}, nil
}

func (s *Server) handleReply(ctx context.Context, input *ReplyInput) (*ReplyOutput, error) {
	r, err := s.services.Comments.Reply(ctx, input.ID, input.Body.Body)
	if err != nil {
		return nil, err
	}
	return &ReplyOutput{Body: r}, nil
}

func (s *Server) handleDeleteReply(ctx context.Context, input *ReplyIDInput) (*struct{}, error) {
	return nil, s.services.Comments.DeleteReply(ctx, input.ID, input.ReplyID)
}

func (s *Server) handleToggleReplyLike(ctx context.Context, input *ReplyIDInput) (*LikeOutput, error) {
	liked, err := s.services.Comments.ToggleReplyLike(ctx, input.ID, input.ReplyID)
	if err != nil {
		return nil, err
	}
	return &LikeOutput{Body: LikeState{Liked: liked}}, nil
}
