package app

import (
	"net/http"

	"parenthub/internal/service"
	"parenthub/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	discussion service.DiscussionService
}

func NewCommentHandler(discussion service.DiscussionService) *CommentHandler {
	return &CommentHandler{discussion: discussion}
}

type postCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

type editContentRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	ReactionType string `json:"reaction_type"`
}

// GetThread returns the approved comments of an article as nested trees
// GET /api/v1/articles/:id/comments
func (h *CommentHandler) GetThread(c *gin.Context) {
	forest, err := h.discussion.ListCommentThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comments retrieved successfully", gin.H{"comments": forest})
}

// PostComment adds a comment or a reply to an article
// POST /api/v1/articles/:id/comments
func (h *CommentHandler) PostComment(c *gin.Context) {
	var req postCommentRequest
	if !bindBody(c, &req) {
		return
	}

	node, err := h.discussion.PostComment(c.Request.Context(), c.Param("id"), req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Comment created successfully", gin.H{"comment": node})
}

// EditComment replaces the text of a comment
// PUT /api/v1/comments/:id
func (h *CommentHandler) EditComment(c *gin.Context) {
	var req editContentRequest
	if !bindBody(c, &req) {
		return
	}

	comment, err := h.discussion.EditComment(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment updated successfully", gin.H{"comment": comment})
}

// DeleteComment removes a comment
// DELETE /api/v1/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	comment, err := h.discussion.DeleteComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Comment deleted successfully", gin.H{"comment": comment})
}

// ToggleReaction adds, switches or removes the caller's reaction
// POST /api/v1/comments/:id/reactions
func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	var req reactionRequest
	if !bindBody(c, &req) {
		return
	}

	state, err := h.discussion.ToggleReaction(c.Request.Context(), c.Param("id"), req.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reaction updated successfully", gin.H{"reactions": state})
}
