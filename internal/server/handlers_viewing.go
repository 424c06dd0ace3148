package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalscope/signalscope/internal/viewing"
)

func (s *Server) handleDaily(c *gin.Context) {
	view := s.engine.Daily(c.Request.Context(), s.currentUserID(c), viewing.TrackDefault)
	c.JSON(http.StatusOK, view)
}

func (s *Server) handlePredict(c *gin.Context) {
	var req struct {
		Prediction string `json:"prediction"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	pred, err := s.engine.SubmitPrediction(c.Request.Context(), s.currentUserID(c), viewing.TrackDefault, req.Prediction)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prediction": gin.H{
		"roundId": pred.RoundID,
		"text":    pred.Text,
		"outcome": pred.Outcome,
	}})
}

type frontloadRequest struct {
	Days      int    `json:"days"`
	StartDate string `json:"startDate"`
	Track     string `json:"track"`
}

func (s *Server) frontload(c *gin.Context, track viewing.Track, force bool) {
	var req frontloadRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Days < 1 || req.Days > 60 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 60"})
		return
	}
	start := time.Now().UTC()
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if track == "" {
		parsed, ok := viewing.ParseTrack(req.Track)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "track must be dynamic or preloaded"})
			return
		}
		track = parsed
		// Only the preloaded track may generate ahead of its window; dynamic
		// keeps its cutoff even when frontloaded.
		force = track == viewing.TrackPreloaded
	}
	results := s.engine.Frontload(c.Request.Context(), start, req.Days, track, force)
	generated, existing, scheduled, failed := 0, 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "generated":
			generated++
		case "existing":
			existing++
		case "scheduled":
			scheduled++
		default:
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"days":      results,
		"generated": generated,
		"existing":  existing,
		"scheduled": scheduled,
		"failed":    failed,
	})
}

func (s *Server) handleFrontload(c *gin.Context) {
	s.frontload(c, viewing.TrackDefault, false)
}

func (s *Server) handleReserveFrontload(c *gin.Context) {
	var req struct {
		TargetAvailable int `json:"targetAvailable"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.TargetAvailable < 1 || req.TargetAvailable > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetAvailable must be between 1 and 50"})
		return
	}
	report := s.engine.FrontloadReserve(c.Request.Context(), req.TargetAvailable)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleRoundImage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	data, contentType, err := s.engine.Image(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) handleParallelDaily(c *gin.Context) {
	track, ok := viewing.ParseTrack(c.Query("track"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track must be dynamic or preloaded"})
		return
	}
	view := s.engine.Daily(c.Request.Context(), s.currentUserID(c), track)
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleParallelPredict(c *gin.Context) {
	var req struct {
		Track      string `json:"track"`
		Prediction string `json:"prediction"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	track, ok := viewing.ParseTrack(req.Track)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track must be dynamic or preloaded"})
		return
	}
	pred, err := s.engine.SubmitPrediction(c.Request.Context(), s.currentUserID(c), track, req.Prediction)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prediction": gin.H{
		"roundId": pred.RoundID,
		"track":   string(track),
		"text":    pred.Text,
		"outcome": pred.Outcome,
	}})
}

func (s *Server) handleParallelFrontload(c *gin.Context) {
	// Track comes from the body; frontload decides the force mode per track.
	s.frontload(c, "", false)
}

func (s *Server) handleCompare(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.CompareTracks())
}
