package app

import (
	"net/http"
	"strconv"

	"parenthub/internal/service"
	"parenthub/internal/util"

	"github.com/gin-gonic/gin"
)

type ForumHandler struct {
	discussion service.DiscussionService
}

func NewForumHandler(discussion service.DiscussionService) *ForumHandler {
	return &ForumHandler{discussion: discussion}
}

type createForumPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type replyRequest struct {
	Content       string  `json:"content"`
	ParentReplyID *string `json:"parent_reply_id"`
}

// flagRequest defaults to true when the body is empty.
type flagRequest struct {
	Value *bool `json:"value"`
}

func (r flagRequest) value() bool {
	return r.Value == nil || *r.Value
}

func bindFlag(c *gin.Context) (bool, bool) {
	var req flagRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BadRequest(c, err.Error())
			return false, false
		}
	}
	return req.value(), true
}

// ListForums returns the active forums
// GET /api/v1/forums
func (h *ForumHandler) ListForums(c *gin.Context) {
	forums, err := h.discussion.ListForums(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Forums retrieved successfully", gin.H{"forums": forums})
}

// GetForum looks a forum up by id or slug
// GET /api/v1/forums/:id
func (h *ForumHandler) GetForum(c *gin.Context) {
	forum, err := h.discussion.GetForum(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Forum retrieved successfully", gin.H{"forum": forum})
}

// ListPosts returns pinned posts first, then the newest
// GET /api/v1/forums/:id/posts?limit=20
func (h *ForumHandler) ListPosts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = service.DefaultPostLimit
	}

	forum, err := h.discussion.GetForum(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	posts, err := h.discussion.ListForumPosts(c.Request.Context(), forum.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Posts retrieved successfully", gin.H{"posts": posts, "forum": forum})
}

// CreatePost starts a discussion in a forum
// POST /api/v1/forums/:id/posts
func (h *ForumHandler) CreatePost(c *gin.Context) {
	var req createForumPostRequest
	if !bindBody(c, &req) {
		return
	}

	forum, err := h.discussion.GetForum(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	post, err := h.discussion.CreateForumPost(c.Request.Context(), forum.ID, req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Post created successfully", gin.H{"post": post})
}

// GetPost returns a post and counts the view
// GET /api/v1/forum-posts/:id
func (h *ForumHandler) GetPost(c *gin.Context) {
	post, err := h.discussion.ViewForumPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Post retrieved successfully", gin.H{"post": post})
}

// GetReplies returns the reply thread of a post
// GET /api/v1/forum-posts/:id/replies
func (h *ForumHandler) GetReplies(c *gin.Context) {
	forest, err := h.discussion.ListReplyThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Replies retrieved successfully", gin.H{"replies": forest})
}

// Reply answers a post, or another reply when parent_reply_id is set
// POST /api/v1/forum-posts/:id/replies
func (h *ForumHandler) Reply(c *gin.Context) {
	var req replyRequest
	if !bindBody(c, &req) {
		return
	}

	node, err := h.discussion.ReplyToForumPost(c.Request.Context(), c.Param("id"), req.Content, req.ParentReplyID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Reply created successfully", gin.H{"reply": node})
}

// ClosePost stops new replies; author only
// POST /api/v1/forum-posts/:id/close
func (h *ForumHandler) ClosePost(c *gin.Context) {
	post, err := h.discussion.CloseForumPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Post closed successfully", gin.H{"post": post})
}

// PinPost sets or clears the pinned flag
// PUT /api/v1/forum-posts/:id/pin
func (h *ForumHandler) PinPost(c *gin.Context) {
	pinned, ok := bindFlag(c)
	if !ok {
		return
	}

	post, err := h.discussion.PinPost(c.Request.Context(), c.Param("id"), pinned)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Post updated successfully", gin.H{"post": post})
}

// MarkSolved sets or clears the solved flag
// PUT /api/v1/forum-posts/:id/solve
func (h *ForumHandler) MarkSolved(c *gin.Context) {
	solved, ok := bindFlag(c)
	if !ok {
		return
	}

	post, err := h.discussion.MarkSolved(c.Request.Context(), c.Param("id"), solved)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Post updated successfully", gin.H{"post": post})
}

// Upvote votes on a post or a reply; repeated votes are ignored
// POST /api/v1/forum-posts/:id/upvote and /api/v1/forum-replies/:id/upvote
func (h *ForumHandler) Upvote(c *gin.Context) {
	applied, err := h.discussion.Upvote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Vote recorded"
	if !applied {
		message = "Already voted"
	}
	util.SuccessResponse(c, http.StatusOK, message, gin.H{"applied": applied})
}

// HasVoted tells whether the caller already voted on a post or reply
// GET /api/v1/forum-posts/:id/voted
func (h *ForumHandler) HasVoted(c *gin.Context) {
	voted, err := h.discussion.HasVoted(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Vote status retrieved", gin.H{"voted": voted})
}

// EditReply replaces the text of a reply
// PUT /api/v1/forum-replies/:id
func (h *ForumHandler) EditReply(c *gin.Context) {
	var req editContentRequest
	if !bindBody(c, &req) {
		return
	}

	reply, err := h.discussion.EditReply(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reply updated successfully", gin.H{"reply": reply})
}

// DeleteReply removes a reply
// DELETE /api/v1/forum-replies/:id
func (h *ForumHandler) DeleteReply(c *gin.Context) {
	reply, err := h.discussion.DeleteReply(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reply deleted successfully", gin.H{"reply": reply})
}

// MarkHelpful sets or clears the helpful flag of a reply
// PUT /api/v1/forum-replies/:id/helpful
func (h *ForumHandler) MarkHelpful(c *gin.Context) {
	helpful, ok := bindFlag(c)
	if !ok {
		return
	}

	reply, err := h.discussion.MarkReplyHelpful(c.Request.Context(), c.Param("id"), helpful)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Reply updated successfully", gin.H{"reply": reply})
}
