package app

import (
	"context"
	"errors"
	"log"
	"time"

	"parenthub/internal/config"
	"parenthub/internal/identity"
	"parenthub/internal/middleware"
	"parenthub/internal/model"
	"parenthub/internal/repository"
	"parenthub/internal/repository/memstore"
	"parenthub/internal/service"
	"parenthub/internal/util"
	"parenthub/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewRouter wires the store, cache, event fan-out and background workers and
// returns the engine together with a function that releases all of them.
func NewRouter(cfg *config.Config) (*gin.Engine, func()) {
	// Set Gin mode
	if cfg.ServerPort == "5000" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var closers []func()

	repos, closeStore := initRepositories(cfg)
	closers = append(closers, closeStore)

	var redisClient *util.RedisClient
	var rabbitMQ *util.RabbitMQClient
	if cfg.StoreDriver == config.StoreDriverPostgres {
		// Initialize Redis with retry logic
		redisClient = initRedisWithRetry(cfg)
		if redisClient != nil {
			closers = append(closers, func() { redisClient.Close() })
		}

		// Initialize RabbitMQ with retry logic
		rabbitMQ = initRabbitMQWithRetry(cfg)
		if rabbitMQ != nil {
			closers = append(closers, func() { rabbitMQ.Close() })
		}
	} else {
		log.Println("Memory store selected: Redis and RabbitMQ are not used")
	}

	repos.Comments = repository.NewCachedCommentRepository(repos.Comments, redisClient)
	repos.ForumReplies = repository.NewCachedForumReplyRepository(repos.ForumReplies, redisClient)

	seedForums(context.Background(), repos.Forums)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	closers = append(closers, wsHub.Stop)
	log.Println("WebSocket hub started")

	var publisher service.EventPublisher = service.NewHubPublisher(wsHub)
	if rabbitMQ != nil {
		eventWorker := service.NewEventWorker(rabbitMQ, wsHub)
		if err := eventWorker.Start(); err != nil {
			log.Printf("Warning: Failed to start discussion event worker: %v. Events go straight to the hub.", err)
		} else {
			log.Println("Discussion event worker started successfully")
			publisher = service.NewRabbitPublisher(rabbitMQ, publisher, eventWorker)
			closers = append(closers, eventWorker.Stop)
		}
	}

	discussion := service.NewDiscussionService(repos, identity.NewContextProvider(), service.Options{
		MaxDepth:    cfg.ThreadMaxDepth,
		AutoApprove: cfg.CommentsAutoApprove,
		Now:         time.Now,
		Events:      publisher,
	})

	reconciler := service.NewReconciler(repos.Forums, repos.ForumPosts, repos.ForumReplies, repos.Votes, cfg.CounterReconcileInterval)
	reconciler.Start()
	closers = append(closers, reconciler.Stop)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		closers = append(closers, startRateLimiterCleanup(rateLimiter))
		log.Printf("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r := newEngine(cfg, discussion, wsHub, rateLimiter)

	cleanup := func() {
		// release in reverse order of acquisition
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return r, cleanup
}

// newEngine registers middleware and routes. rateLimiter may be nil.
func newEngine(cfg *config.Config, discussion service.DiscussionService, wsHub *websocket.Hub, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware(cfg.ClientURL))

	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware())
	}

	commentHandler := NewCommentHandler(discussion)
	forumHandler := NewForumHandler(discussion)

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		// Article comment threads
		articles := api.Group("/articles")
		{
			articles.GET("/:id/comments", commentHandler.GetThread)
			articles.POST("/:id/comments", commentHandler.PostComment)
		}

		comments := api.Group("/comments")
		{
			comments.PUT("/:id", commentHandler.EditComment)
			comments.DELETE("/:id", commentHandler.DeleteComment)
			comments.POST("/:id/reactions", commentHandler.ToggleReaction)
		}

		// Forums
		forums := api.Group("/forums")
		{
			forums.GET("", forumHandler.ListForums)
			forums.GET("/:id", forumHandler.GetForum)
			forums.GET("/:id/posts", forumHandler.ListPosts)
			forums.POST("/:id/posts", forumHandler.CreatePost)
		}

		posts := api.Group("/forum-posts")
		{
			posts.GET("/:id", forumHandler.GetPost)
			posts.GET("/:id/replies", forumHandler.GetReplies)
			posts.POST("/:id/replies", forumHandler.Reply)
			posts.POST("/:id/close", forumHandler.ClosePost)
			posts.POST("/:id/upvote", forumHandler.Upvote)
			posts.GET("/:id/voted", forumHandler.HasVoted)

			// Moderator routes
			posts.PUT("/:id/pin", middleware.RequireElevated(), forumHandler.PinPost)
			posts.PUT("/:id/solve", middleware.RequireElevated(), forumHandler.MarkSolved)
		}

		replies := api.Group("/forum-replies")
		{
			replies.PUT("/:id", forumHandler.EditReply)
			replies.DELETE("/:id", forumHandler.DeleteReply)
			replies.POST("/:id/upvote", forumHandler.Upvote)
			replies.GET("/:id/voted", forumHandler.HasVoted)
			replies.PUT("/:id/helpful", middleware.RequireElevated(), forumHandler.MarkHelpful)
		}
	}

	// WebSocket route
	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWS(wsHub, cfg.JWTSecret).ServeHTTP(c.Writer, c.Request)
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "ok",
			"store":      cfg.StoreDriver,
			"ws_clients": wsHub.GetTotalClientCount(),
		})
	})

	return r
}

// initRepositories opens the record store selected by STORE_DRIVER.
func initRepositories(cfg *config.Config) (service.Repositories, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memstore.New()
		return service.Repositories{
			Articles:     store.Articles(),
			Comments:     store.Comments(),
			Reactions:    store.Reactions(),
			Forums:       store.Forums(),
			ForumPosts:   store.ForumPosts(),
			ForumReplies: store.ForumReplies(),
			Votes:        store.Votes(),
		}, func() {}
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	// Auto migrate
	if err := db.AutoMigrate(&model.Article{}, &model.Comment{}, &model.CommentReaction{}, &model.Forum{}, &model.ForumPost{}, &model.ForumReply{}, &model.ForumVote{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return service.Repositories{
		Articles:     repository.NewArticleRepository(db),
		Comments:     repository.NewCommentRepository(db),
		Reactions:    repository.NewReactionRepository(db),
		Forums:       repository.NewForumRepository(db),
		ForumPosts:   repository.NewForumPostRepository(db),
		ForumReplies: repository.NewForumReplyRepository(db),
		Votes:        repository.NewVoteRepository(db),
	}, closeDB
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	// TranslateError lets repositories see gorm.ErrDuplicatedKey on unique violations
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}

var defaultForums = []model.Forum{
	{Slug: "pregnancy", Name: "Pregnancy", Order: 1},
	{Slug: "newborn", Name: "Newborn care", Order: 2},
	{Slug: "sleep", Name: "Sleep", Order: 3},
	{Slug: "feeding", Name: "Feeding & nutrition", Order: 4},
	{Slug: "toddlers", Name: "Toddlers", Order: 5},
	{Slug: "general", Name: "General chat", Order: 6},
}

// seedForums creates the default boards that do not exist yet.
func seedForums(ctx context.Context, forums repository.ForumRepository) {
	for _, f := range defaultForums {
		_, err := forums.FindBySlug(ctx, f.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Warning: Failed to look up forum %s: %v", f.Slug, err)
			return
		}

		forum := f
		forum.IsActive = true
		if err := forums.Create(ctx, &forum); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			log.Printf("Warning: Failed to seed forum %s: %v", f.Slug, err)
		}
	}
}

// startRateLimiterCleanup forgets idle visitors once a minute until the
// returned stop function is called.
func startRateLimiterCleanup(rl *middleware.RateLimiter) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				rl.Cleanup(now)
			}
		}
	}()
	return func() { close(done) }
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential backoff retry
func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	maxRetries := 5
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		rabbitMQ, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			log.Printf("RabbitMQ connected successfully on attempt %d", attempt)
			return rabbitMQ
		}

		if attempt < maxRetries {
			// Calculate delay with exponential backoff
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to RabbitMQ after %d attempts: %v. Events will be pushed to local websocket clients only.", maxRetries, err)
		}
	}

	return nil
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff retry
func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	maxRetries := 5
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		redisClient, err := util.NewRedisClient(cfg)
		if err == nil {
			log.Printf("Redis connected successfully on attempt %d", attempt)
			return redisClient
		}

		if attempt < maxRetries {
			// Calculate delay with exponential backoff
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}

			log.Printf("Failed to connect to Redis (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			log.Printf("Warning: Failed to connect to Redis after %d attempts: %v. Caching will be disabled.", maxRetries, err)
			log.Println("Note: Application will continue without Redis caching")
		}
	}

	return nil
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	// Allowed origins (whitelist)
	allowedOrigins := []string{
		clientURL, // Default from config
		"http://localhost:3000",
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is in whitelist
		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		// If origin is allowed, set it; otherwise, use default
		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
