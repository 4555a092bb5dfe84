package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"

	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/extract"
)

// FetchFunc pulls changelog elements for the sync endpoint. startTime is
// epoch milliseconds; pass a negative value to resume from the recorded
// last run, 0 to refetch from the beginning.
type FetchFunc func(ctx context.Context, startTime int64) ([]changelog.Element, error)

// ServerConfig configures the review HTTP server.
type ServerConfig struct {
	Addr        string
	FixturesDir string
	Fetch       FetchFunc // nil disables the sync endpoint
	OpenBrowser bool
}

// Server serves the review queue as a JSON API plus a minimal HTML page.
type Server struct {
	store  Store
	config ServerConfig
	logger *slog.Logger
	router *gin.Engine
}

// NewServer builds the review server and its routes.
func NewServer(store Store, cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:  store,
		config: cfg,
		logger: slog.Default().With("component", "review_server"),
	}

	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())

	router.GET("/", s.handleIndex)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/queue", s.handleQueue)
		api.GET("/counts", s.handleCounts)
		api.GET("/items/:id", s.handleGetItem)
		api.GET("/items/:id/preview", s.handlePreview)
		api.POST("/items/:id/status", s.handleSetStatus)
		api.POST("/items/:id/correction", s.handleCorrection)
		api.POST("/sync", s.handleSync)
		api.POST("/export", s.handleExport)
	}

	s.router = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	url := s.serverURL()
	s.logger.Info("review server started", "url", url)
	if s.config.OpenBrowser {
		if err := browser.OpenURL(url); err != nil {
			s.logger.Warn("could not open browser", "url", url, "error", err)
		}
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("review server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown review server: %w", err)
	}
	s.logger.Info("review server stopped")
	return nil
}

func (s *Server) serverURL() string {
	if strings.HasPrefix(s.config.Addr, ":") {
		return "http://localhost" + s.config.Addr
	}
	return "http://" + s.config.Addr
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, indexHTML)
}

func (s *Server) handleQueue(c *gin.Context) {
	items, err := s.store.WorkQueue(c.Request.Context())
	if err != nil {
		s.logger.Error("work queue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load work queue"})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "count": len(out)})
}

func (s *Server) handleCounts(c *gin.Context) {
	counts, err := s.store.CountsByStatus(c.Request.Context())
	if err != nil {
		s.logger.Error("status counts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

func (s *Server) handleGetItem(c *gin.Context) {
	item, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("get item failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load item"})
		return
	}
	c.JSON(http.StatusOK, itemResponse(*item))
}

// handlePreview re-runs extraction on the stored raw element, trace
// included.
func (s *Server) handlePreview(c *gin.Context) {
	item, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("get item failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load item"})
		return
	}

	// UseNumber keeps 19-digit activity ids exact through the re-decode.
	var el changelog.Element
	dec := json.NewDecoder(strings.NewReader(item.RawJSON))
	dec.UseNumber()
	if err := dec.Decode(&el); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "stored raw element is not valid JSON"})
		return
	}

	c.JSON(http.StatusOK, extract.PreviewElement(&el))
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status %q", req.Status)})
		return
	}

	if err := s.store.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("set status failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (s *Server) handleCorrection(c *gin.Context) {
	var req struct {
		Corrected json.RawMessage `json:"corrected"`
		Notes     *string         `json:"notes"`
		Status    *string         `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := CorrectionUpdate{Notes: req.Notes, Status: req.Status}
	if len(req.Corrected) > 0 && string(req.Corrected) != "null" {
		corrected := string(req.Corrected)
		upd.CorrectedJSON = &corrected
	}

	if err := s.store.UpdateCorrection(c.Request.Context(), c.Param("id"), upd); err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		s.logger.Error("save correction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save correction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) handleSync(c *gin.Context) {
	if s.config.Fetch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync is not configured on this server"})
		return
	}

	startTime := int64(-1)
	if c.Request.ContentLength > 0 {
		var req struct {
			StartTime *int64 `json:"start_time"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.StartTime != nil {
			startTime = *req.StartTime
		}
	}

	ctx := c.Request.Context()
	elements, err := s.config.Fetch(ctx, startTime)
	if err != nil {
		s.logger.Error("changelog fetch failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	res, err := Sync(ctx, s.store, elements)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync elements"})
		return
	}

	queue, err := s.store.WorkQueue(ctx)
	if err != nil {
		s.logger.Error("work queue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load work queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched":  len(elements),
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"queue":    len(queue),
	})
}

func (s *Server) handleExport(c *gin.Context) {
	n, err := ExportFixtures(c.Request.Context(), s.store, s.config.FixturesDir)
	if err != nil {
		s.logger.Error("fixture export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export fixtures"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exported": n, "dir": s.config.FixturesDir})
}

// itemResponse converts an Item into a response with the JSON columns
// inlined as objects instead of serialized strings.
func itemResponse(item Item) gin.H {
	return gin.H{
		"element_id":    item.ElementID,
		"processed_at":  item.ProcessedAt,
		"resource_name": item.ResourceName,
		"method_name":   item.MethodName,
		"status":        item.Status,
		"notes":         item.Notes,
		"updated_at":    item.UpdatedAt,
		"raw":           rawMessage(item.RawJSON),
		"extracted":     rawMessage(item.ExtractedJSON),
		"corrected":     rawMessage(item.CorrectedJSON),
	}
}

func rawMessage(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("http request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
		)
	}
}
