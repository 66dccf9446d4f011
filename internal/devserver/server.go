package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pders01/fragments/internal/debuglog"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

// Server exposes a Corpus over the news REST API.
type Server struct {
	corpus *Corpus
	engine *gin.Engine
	log    *debuglog.FieldLogger
}

func New(corpus *Corpus) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		corpus: corpus,
		engine: gin.New(),
		log:    debuglog.Component("devserver"),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "User-Agent"}
	s.engine.Use(cors.New(corsConfig))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/news/latest", s.latest)
		api.GET("/news/card/:id", s.card)
		api.GET("/news/tags", s.tags)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "cards": s.corpus.Len(), "timestamp": time.Now()})
		})
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving %d cards on %s", s.corpus.Len(), addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debugf("handled in %s", time.Since(start))
	}
}

func (s *Server) latest(c *gin.Context) {
	limit, ok := intParam(c, "limit", defaultLimit)
	if !ok || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_limit",
			Message: fmt.Sprintf("limit must be between 1 and %d", maxLimit),
		})
		return
	}
	offset, ok := intParam(c, "offset", 0)
	if !ok || offset < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_offset",
			Message: "offset must be a non-negative integer",
		})
		return
	}

	c.JSON(http.StatusOK, s.corpus.Latest(c.Query("tag"), limit, offset))
}

func (s *Server) card(c *gin.Context) {
	card, ok := s.corpus.Card(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "card_not_found",
			Message: "News card not found",
		})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) tags(c *gin.Context) {
	c.JSON(http.StatusOK, tagsResponse{Tags: s.corpus.Tags()})
}

func intParam(c *gin.Context, name string, fallback int) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
