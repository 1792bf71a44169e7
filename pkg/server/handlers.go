package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breadoorr/SmartPlan/pkg/llm"
	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/parser"
	"github.com/breadoorr/SmartPlan/pkg/planner"
	"github.com/breadoorr/SmartPlan/pkg/store"
	"github.com/breadoorr/SmartPlan/pkg/timeline"
)

const msgMissingInput = "User input is required"

type generateRequest struct {
	UserInput string `json:"userInput"`
}

type generateResponse struct {
	Tasks []model.Task `json:"tasks"`
}

type putPlanRequest struct {
	Tasks []model.Task `json:"tasks"`
}

type toggleRequest struct {
	Completed *bool `json:"completed"`
}

type timelineResponse struct {
	Date   string           `json:"date"`
	Hours  []string         `json:"hours"`
	Blocks []timeline.Block `json:"blocks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleGenerateTasks(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserInput) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingInput})
		return
	}

	tasks, err := s.planner.Plan(c.Request.Context(), req.UserInput)
	if err != nil {
		log.Printf("Error generating tasks: %v", err)
		status, msg := generateFailure(err)
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, generateResponse{Tasks: tasks})
}

// generateFailure maps a planner error to a status and a message safe to show users.
func generateFailure(err error) (int, string) {
	switch {
	case errors.Is(err, planner.ErrMissingInput):
		return http.StatusBadRequest, msgMissingInput
	case errors.Is(err, llm.ErrTransport):
		return http.StatusInternalServerError, "Failed to generate tasks"
	case errors.Is(err, parser.ErrTaskParsingFailed):
		return http.StatusInternalServerError, "Failed to parse model response as JSON"
	case errors.Is(err, planner.ErrStructuringFailed):
		return http.StatusInternalServerError, "Failed to structure input"
	case errors.Is(err, planner.ErrGenerationFailed):
		return http.StatusInternalServerError, "No response from model"
	default:
		return http.StatusInternalServerError, "Failed to generate tasks"
	}
}

func (s *Server) handleGetPlan(c *gin.Context) {
	plan, err := s.plans.LoadPlan(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handlePutPlan(c *gin.Context) {
	var req putPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tasks := parser.Normalize(req.Tasks)
	if len(tasks) > 0 {
		if err := parser.Validate(tasks); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	plan, err := s.plans.SavePlan(c.Request.Context(), c.Param("key"), tasks)
	if err != nil {
		s.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "completed is required"})
		return
	}

	plan, err := s.plans.SetCompleted(c.Request.Context(), c.Param("key"), c.Param("id"), *req.Completed)
	if err != nil {
		s.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleEditTask(c *gin.Context) {
	var task model.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	task.ID = c.Param("id")
	task = parser.Normalize([]model.Task{task})[0]
	if err := parser.Validate([]model.Task{task}); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	plan, err := s.plans.ReplaceTask(c.Request.Context(), c.Param("key"), task)
	if err != nil {
		s.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleTimeline(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	plan, err := s.plans.LoadPlan(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.planError(c, err)
		return
	}

	c.JSON(http.StatusOK, timelineResponse{
		Date:   day.Format(model.DateLayout),
		Hours:  timeline.HourLabels(),
		Blocks: timeline.ForDay(plan.Tasks, day, s.timeline),
	})
}

func (s *Server) planError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "plan not found"})
	case errors.Is(err, store.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found"})
	default:
		log.Printf("Plan store error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
