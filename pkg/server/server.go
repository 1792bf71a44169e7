// Package server exposes the planner and plan store over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/timeline"
)

// TaskPlanner produces a validated task batch from free text.
type TaskPlanner interface {
	Plan(ctx context.Context, userInput string) ([]model.Task, error)
}

// PlanStore is the persistence used by the plan routes.
type PlanStore interface {
	SavePlan(ctx context.Context, key string, tasks []model.Task) (*model.Plan, error)
	LoadPlan(ctx context.Context, key string) (*model.Plan, error)
	SetCompleted(ctx context.Context, key, taskID string, completed bool) (*model.Plan, error)
	ReplaceTask(ctx context.Context, key string, task model.Task) (*model.Plan, error)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Server is the SmartPlan HTTP API.
type Server struct {
	planner  TaskPlanner
	plans    PlanStore
	timeline timeline.Options
	router   *gin.Engine
}

// New builds the router. Plan routes are only registered when plans is non-nil.
func New(planner TaskPlanner, plans PlanStore, layout timeline.Options) *Server {
	router := gin.Default()
	router.Use(cors())

	s := &Server{
		planner:  planner,
		plans:    plans,
		timeline: layout,
		router:   router,
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/generate-tasks", s.handleGenerateTasks)
		if plans != nil {
			api.GET("/plans/:key", s.handleGetPlan)
			api.PUT("/plans/:key", s.handlePutPlan)
			api.PATCH("/plans/:key/tasks/:id", s.handleToggleTask)
			api.PUT("/plans/:key/tasks/:id", s.handleEditTask)
			api.GET("/plans/:key/timeline", s.handleTimeline)
		}
	}

	return s
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// cors allows any origin; the browser UI is served from a different port.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
