package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VivekJangam126/server-survival-sub000/internal/engine"
	"github.com/VivekJangam126/server-survival-sub000/internal/persist"
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// FrameInterval is how often the simulation advances and broadcasts
const FrameInterval = 50 * time.Millisecond

// Frame is the message pushed to every websocket viewer each tick
type Frame struct {
	Type          string                `json:"type"`
	Snapshot      engine.Snapshot       `json:"snapshot"`
	Notifications []engine.Notification `json:"notifications,omitempty"`
}

// Server exposes the simulation over HTTP and websocket. Every
// mutating request is funneled through a command channel executed on
// the tick goroutine, so the clock never races its callers.
type Server struct {
	catalog *config.Catalog
	clock   *engine.Clock
	store   persist.Store
	hub     *Hub
	router  *gin.Engine
	seed    int64
	cmds    chan func()
	logger  *slog.Logger
}

// NewServer wires the simulation clock, save store and routes
func NewServer(catalog *config.Catalog, clock *engine.Clock, store persist.Store, seed int64) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		catalog: catalog,
		clock:   clock,
		store:   store,
		hub:     NewHub(),
		router:  router,
		seed:    seed,
		cmds:    make(chan func(), 64),
		logger:  logger.Default,
	}
	s.setupRoutes()
	return s
}

// SetLogger sets the server's logger
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
	s.hub.SetLogger(l)
}

// Router returns the HTTP handler for this server
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.Use(corsMiddleware())

	s.router.GET("/healthz", s.health)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	{
		api.GET("/state", s.getState)

		api.POST("/services", s.placeService)
		api.DELETE("/services/:id", s.removeService)
		api.POST("/services/:id/upgrade", s.upgradeService)

		api.POST("/connections", s.connect)
		api.DELETE("/connections", s.disconnect)

		api.POST("/clock/scale", s.setTimeScale)
		api.POST("/clock/autorepair", s.setAutoRepair)
		api.POST("/clock/reset", s.reset)

		api.GET("/saves", s.listSaves)
		api.POST("/saves", s.saveGame)
		api.POST("/saves/:id/load", s.loadGame)
		api.DELETE("/saves/:id", s.deleteSave)
	}
}

// Run advances the simulation on a fixed cadence and executes queued
// commands between frames. It returns when ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.hub.Close()
			return
		case cmd := <-s.cmds:
			cmd()
		case now := <-ticker.C:
			s.drain()
			s.clock.Tick(now)
			s.hub.Broadcast(Frame{
				Type:          "snapshot",
				Snapshot:      s.clock.Snapshot(),
				Notifications: s.clock.Drain(),
			})
		}
	}
}

func (s *Server) drain() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd()
		default:
			return
		}
	}
}

type cmdResult struct {
	body interface{}
	err  error
}

// do runs fn on the tick goroutine and waits for its result
func (s *Server) do(fn func() (interface{}, error)) (interface{}, error) {
	done := make(chan cmdResult, 1)
	s.cmds <- func() {
		body, err := fn()
		done <- cmdResult{body: body, err: err}
	}
	r := <-done
	return r.body, r.err
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "viewers": s.hub.Count()})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	if err := s.hub.Add(c.Writer, c.Request); err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
	}
}

func (s *Server) getState(c *gin.Context) {
	body, _ := s.do(func() (interface{}, error) {
		return s.clock.Snapshot(), nil
	})
	c.JSON(http.StatusOK, body)
}

type placeServiceRequest struct {
	Type models.ServiceType `json:"type" binding:"required"`
	X    float64            `json:"x"`
	Y    float64            `json:"y"`
}

func (s *Server) placeService(c *gin.Context) {
	var req placeServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := s.do(func() (interface{}, error) {
		svc, err := s.clock.PlaceService(req.Type, models.Position{X: req.X, Y: req.Y})
		if err != nil {
			return nil, err
		}
		return gin.H{"id": svc.ID, "type": svc.Type, "tier": svc.Tier}, nil
	})
	if err != nil {
		c.JSON(refusalStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, body)
}

func (s *Server) removeService(c *gin.Context) {
	id := c.Param("id")
	_, err := s.do(func() (interface{}, error) {
		return nil, s.clock.RemoveService(id)
	})
	if err != nil {
		c.JSON(refusalStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) upgradeService(c *gin.Context) {
	id := c.Param("id")
	body, err := s.do(func() (interface{}, error) {
		svc, err := s.clock.UpgradeService(id)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": svc.ID, "tier": svc.Tier}, nil
	})
	if err != nil {
		c.JSON(refusalStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, body)
}

type connectionRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

func (s *Server) connect(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := s.do(func() (interface{}, error) {
		return nil, s.clock.Connect(req.From, req.To)
	})
	if err != nil {
		c.JSON(refusalStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "connected"})
}

func (s *Server) disconnect(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	_, err := s.do(func() (interface{}, error) {
		return nil, s.clock.Disconnect(from, to)
	})
	if err != nil {
		c.JSON(refusalStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

type timeScaleRequest struct {
	Scale *float64 `json:"scale" binding:"required"`
}

func (s *Server) setTimeScale(c *gin.Context) {
	var req timeScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := s.do(func() (interface{}, error) {
		return nil, s.clock.SetTimeScale(*req.Scale)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scale": *req.Scale})
}

type autoRepairRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) setAutoRepair(c *gin.Context) {
	var req autoRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.do(func() (interface{}, error) {
		s.clock.SetAutoRepair(*req.Enabled)
		return nil, nil
	})
	c.JSON(http.StatusOK, gin.H{"auto_repair": *req.Enabled})
}

// reset abandons the current run and starts a fresh one
func (s *Server) reset(c *gin.Context) {
	s.do(func() (interface{}, error) {
		fresh := engine.NewClock(s.catalog, s.seed)
		fresh.SetLogger(s.logger)
		s.clock = fresh
		return nil, nil
	})
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) listSaves(c *gin.Context) {
	ids, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saves": ids})
}

type saveRequest struct {
	ID string `json:"id"`
}

func (s *Server) saveGame(c *gin.Context) {
	var req saveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.ID == "" {
		req.ID = utils.GenerateSaveID()
	}

	// Capture on the tick goroutine for a consistent snapshot, then
	// write it out without holding up the simulation.
	body, err := s.do(func() (interface{}, error) {
		return persist.Capture(s.clock), nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	save := body.(*persist.SaveGame)

	if err := s.store.Save(c.Request.Context(), req.ID, save); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "saved_at": save.SavedAt})
}

func (s *Server) loadGame(c *gin.Context) {
	id := c.Param("id")

	save, err := s.store.Load(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// Restore builds a complete replacement clock before anything is
	// swapped, so a bad save leaves the running game untouched.
	_, err = s.do(func() (interface{}, error) {
		restored, err := persist.Restore(s.catalog, s.seed, save)
		if err != nil {
			return nil, err
		}
		restored.SetLogger(s.logger)
		s.clock = restored
		return nil, nil
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "loaded"})
}

func (s *Server) deleteSave(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// refusalStatus maps topology refusals onto HTTP status codes
func refusalStatus(err error) int {
	switch {
	case errors.Is(err, topology.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, topology.ErrUnknownType),
		errors.Is(err, topology.ErrSelfLoop),
		errors.Is(err, topology.ErrIncompatible):
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
