package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/auth"
	"github.com/signalscope/signalscope/internal/forum"
	"github.com/signalscope/signalscope/internal/store"
	"github.com/signalscope/signalscope/internal/viewing"
)

type Server struct {
	log    zerolog.Logger
	auth   *auth.Service
	forum  *forum.Service
	engine *viewing.Engine
}

func New(log zerolog.Logger, authSvc *auth.Service, forumSvc *forum.Service, engine *viewing.Engine) *Server {
	return &Server{log: log, auth: authSvc, forum: forumSvc, engine: engine}
}

// Routes mounts the API onto the gin engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.Use(s.identify())

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/auth/me", s.requireUser(), s.handleMe)

	api.GET("/tenants", s.handleTenants)
	api.POST("/tenants", s.requireUser(), s.handleCreateTenant)
	api.GET("/tenants/:id", s.handleTenantDetail)
	api.GET("/tenants/:id/posts", s.handlePosts)
	api.POST("/tenants/:id/posts", s.requireUser(), s.handleCreatePost)
	api.POST("/tenants/:id/cases", s.requireUser(), s.handleCreateCase)
	api.POST("/posts/:id/upvote", s.requireUser(), s.handleUpvote)
	api.POST("/posts/:id/comments", s.requireUser(), s.handleAddComment)
	api.PATCH("/tasks/:id", s.requireUser(), s.handleSetTask)

	rv := api.Group("/remote-viewing")
	rv.GET("/daily", s.handleDaily)
	rv.POST("/predictions", s.requireUser(), s.handlePredict)
	rv.POST("/frontload", s.requireUser(), s.handleFrontload)
	rv.POST("/reserve/frontload", s.requireUser(), s.handleReserveFrontload)
	rv.GET("/rounds/:id/image", s.handleRoundImage)

	par := rv.Group("/parallel")
	par.GET("/daily", s.handleParallelDaily)
	par.POST("/predictions", s.requireUser(), s.handleParallelPredict)
	par.POST("/frontload", s.requireUser(), s.handleParallelFrontload)
	par.GET("/compare", s.handleCompare)
}

// identify resolves the bearer token when present without requiring one.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			if user, err := s.auth.UserForToken(token); err == nil {
				c.Set("user", user)
				c.Set("token", token)
			}
		}
		c.Next()
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("user"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func (s *Server) currentUser(c *gin.Context) *store.User {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(*store.User); ok {
			return u
		}
	}
	return nil
}

func (s *Server) currentUserID(c *gin.Context) int64 {
	if u := s.currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// fail maps a domain error onto the client's {"error": message} envelope.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var exhausted *ai.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, forum.ErrTenantNotFound),
		errors.Is(err, forum.ErrPostNotFound),
		errors.Is(err, forum.ErrTaskNotFound),
		errors.Is(err, viewing.ErrRoundNotFound):
		status = http.StatusNotFound
	case errors.Is(err, viewing.ErrNotRevealed):
		status = http.StatusForbidden
	case errors.Is(err, viewing.ErrRoundClosed),
		errors.Is(err, viewing.ErrPredictionTooShort),
		errors.Is(err, viewing.ErrAwaitingGeneration),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, forum.ErrMissingFields),
		errors.Is(err, forum.ErrBadURL),
		errors.Is(err, forum.ErrBodyTooLong):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// RequestLogger is the zerolog access-log middleware.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	}
}
