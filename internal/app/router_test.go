package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parenthub/internal/config"
	"parenthub/internal/identity"
	"parenthub/internal/model"
	"parenthub/internal/repository/memstore"
	"parenthub/internal/service"
	"parenthub/internal/util"
	"parenthub/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	store  *memstore.Store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	repos := service.Repositories{
		Articles:     store.Articles(),
		Comments:     store.Comments(),
		Reactions:    store.Reactions(),
		Forums:       store.Forums(),
		ForumPosts:   store.ForumPosts(),
		ForumReplies: store.ForumReplies(),
		Votes:        store.Votes(),
	}
	seedForums(context.Background(), repos.Forums)

	cfg := &config.Config{JWTSecret: testSecret, ClientURL: "http://localhost:3000", StoreDriver: config.StoreDriverMemory}
	svc := service.NewDiscussionService(repos, identity.NewContextProvider(), service.DefaultOptions())
	return &testServer{engine: newEngine(cfg, svc, websocket.NewHub(), nil), store: store}
}

func (s *testServer) do(t *testing.T, method, path, user, role string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := util.GenerateToken(user, role, user, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) article(t *testing.T) string {
	t.Helper()
	a := &model.Article{Slug: "first-week-home", Title: "First week home"}
	require.NoError(t, s.store.Articles().Create(context.Background(), a))
	return a.ID
}

func decode[T any](t *testing.T, raw json.RawMessage, key string) T {
	t.Helper()
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &data))
	var out T
	require.NoError(t, json.Unmarshal(data[key], &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"memory"`)
}

func TestCommentRoutes(t *testing.T) {
	s := newTestServer(t)
	post := s.article(t)
	path := "/api/v1/articles/" + post + "/comments"

	code, _ := s.do(t, http.MethodPost, path, "", "", gin.H{"content": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(t, http.MethodPost, path, "user-a", "member", gin.H{"content": "Hello"})
	require.Equal(t, http.StatusCreated, code)
	root := decode[model.CommentNode](t, env.Data, "comment")
	assert.Equal(t, "Hello", root.Content)

	code, _ = s.do(t, http.MethodPost, path, "user-b", "member", gin.H{"content": "Hi back", "parent_id": root.ID})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodGet, path, "", "", nil)
	require.Equal(t, http.StatusOK, code)
	forest := decode[[]model.CommentNode](t, env.Data, "comments")
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, "Hi back", forest[0].Replies[0].Content)

	code, env = s.do(t, http.MethodPost, "/api/v1/comments/"+root.ID+"/reactions", "user-b", "member", gin.H{"reaction_type": "love"})
	require.Equal(t, http.StatusOK, code)
	state := decode[model.ReactionState](t, env.Data, "reactions")
	require.NotNil(t, state.Active)
	assert.Equal(t, "love", *state.Active)

	code, _ = s.do(t, http.MethodPut, "/api/v1/comments/"+root.ID, "user-b", "member", gin.H{"content": "not mine"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/comments/"+root.ID, "mod", "admin", gin.H{"content": "moderated"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/comments/"+root.ID, "user-a", "member", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCommentRoutes_Errors(t *testing.T) {
	s := newTestServer(t)
	post := s.article(t)
	path := "/api/v1/articles/" + post + "/comments"

	code, env := s.do(t, http.MethodPost, path, "user-a", "member", gin.H{"content": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Errors), string(service.KindValidationFailed))

	code, _ = s.do(t, http.MethodPost, path, "user-a", "member", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, path, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, string(env.Errors), string(service.KindUnauthenticated))

	code, _ = s.do(t, http.MethodPost, path, "user-a", "member", gin.H{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/articles/nope/comments", "", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.store.SetFault(func(op string) error {
		if op == "comments.list" {
			return errors.New("connection refused")
		}
		return nil
	})
	code, env = s.do(t, http.MethodGet, path, "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, env.Message, "connection refused")
}

func TestForumRoutes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/forums", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	forums := decode[[]model.Forum](t, env.Data, "forums")
	require.Len(t, forums, len(defaultForums))
	assert.Equal(t, "pregnancy", forums[0].Slug)

	code, env = s.do(t, http.MethodPost, "/api/v1/forums/sleep/posts", "user-a", "member", gin.H{"title": "Naps", "content": "How many at 8 months?"})
	require.Equal(t, http.StatusCreated, code)
	post := decode[model.ForumPost](t, env.Data, "post")

	code, env = s.do(t, http.MethodGet, "/api/v1/forums/sleep/posts?limit=5", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	posts := decode[[]model.ForumPost](t, env.Data, "posts")
	require.Len(t, posts, 1)

	code, env = s.do(t, http.MethodPost, "/api/v1/forum-posts/"+post.ID+"/replies", "user-b", "member", gin.H{"content": "Two, usually"})
	require.Equal(t, http.StatusCreated, code)
	reply := decode[model.ReplyNode](t, env.Data, "reply")

	code, env = s.do(t, http.MethodGet, "/api/v1/forum-posts/"+post.ID, "", "", nil)
	require.Equal(t, http.StatusOK, code)
	viewed := decode[model.ForumPost](t, env.Data, "post")
	assert.EqualValues(t, 1, viewed.ViewCount)
	assert.EqualValues(t, 1, viewed.ReplyCount)

	code, env = s.do(t, http.MethodPost, "/api/v1/forum-replies/"+reply.ID+"/upvote", "user-a", "member", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[bool](t, env.Data, "applied"))
	code, env = s.do(t, http.MethodPost, "/api/v1/forum-replies/"+reply.ID+"/upvote", "user-a", "member", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[bool](t, env.Data, "applied"))

	code, env = s.do(t, http.MethodGet, "/api/v1/forum-replies/"+reply.ID+"/voted", "user-a", "member", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[bool](t, env.Data, "voted"))

	code, _ = s.do(t, http.MethodPost, "/api/v1/forum-posts/"+post.ID+"/close", "user-b", "member", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/forum-posts/"+post.ID+"/close", "user-a", "member", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/forum-posts/"+post.ID+"/replies", "user-b", "member", gin.H{"content": "late"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestForumWrites_AnonymousEmptyBody(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/forums/general/posts", "user-a", "member", gin.H{"title": "Hi", "content": "New here"})
	require.Equal(t, http.StatusCreated, code)
	post := decode[model.ForumPost](t, env.Data, "post")

	for _, path := range []string{
		"/api/v1/forums/general/posts",
		"/api/v1/forum-posts/" + post.ID + "/replies",
	} {
		code, _ := s.do(t, http.MethodPost, path, "", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
}

func TestModeratorRoutes(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodPost, "/api/v1/forums/general/posts", "user-a", "member", gin.H{"title": "Hi", "content": "New here"})
	require.Equal(t, http.StatusCreated, code)
	post := decode[model.ForumPost](t, env.Data, "post")
	pin := "/api/v1/forum-posts/" + post.ID + "/pin"

	code, _ = s.do(t, http.MethodPut, pin, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPut, pin, "user-a", "member", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPut, pin, "mod", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[model.ForumPost](t, env.Data, "post").IsPinned)

	code, env = s.do(t, http.MethodPut, pin, "mod", "author", gin.H{"value": false})
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[model.ForumPost](t, env.Data, "post").IsPinned)

	code, _ = s.do(t, http.MethodGet, "/api/v1/forum-posts/not-a-uuid", "", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
