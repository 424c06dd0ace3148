package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleTenants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tenants": s.forum.Tenants()})
}

func (s *Server) handleCreateTenant(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Tagline     string `json:"tagline"`
		Description string `json:"description"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tenant, err := s.forum.CreateTenant(s.currentUserID(c), req.Name, req.Tagline, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tenant": tenant})
}

func (s *Server) handleTenantDetail(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	tenant, err := s.forum.Tenant(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant})
}

func (s *Server) handlePosts(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	posts, err := s.forum.Posts(id, c.Query("filter"), c.Query("sort"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) handleCreatePost(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
		URL     string `json:"url"`
		Tags    string `json:"tags"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post, err := s.forum.CreatePost(id, s.currentUserID(c), req.Type, req.Title, req.Summary, req.URL, req.Tags)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (s *Server) handleUpvote(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.forum.Upvote(id, s.currentUserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleAddComment(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	comment, err := s.forum.AddComment(id, s.currentUserID(c), req.Body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (s *Server) handleCreateCase(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Title       string `json:"title"`
		InitialTask string `json:"initialTask"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	caseView, err := s.forum.CreateCase(id, s.currentUserID(c), req.Title, req.InitialTask)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"case": caseView})
}

func (s *Server) handleSetTask(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Done bool `json:"done"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := s.forum.SetTaskDone(id, req.Done)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}
