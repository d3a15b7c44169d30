// Package server exposes the course advisor workflows over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/prebuilt"
	"github.com/smallnest/courseqa/rag"
)

const maxQuerySize = 4 << 10

// Options configure a Server. Memory is optional and only used by the
// health check.
type Options struct {
	Workflows    map[agents.Stage]*agents.Workflow
	DefaultStage agents.Stage
	Manager      *rag.CourseManager
	Memory       memory.Client
	Logger       log.Logger
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	logger log.Logger
	router *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: log.OrDefault(opts.Logger),
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), s.logRequests)

	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api")
	{
		api.POST("/ask", s.handleAsk)
		api.GET("/courses/:code", s.handleCourse)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("Listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

// AskRequest is the body of POST /api/ask. Stage is a number or a stage
// name; empty selects the default stage.
type AskRequest struct {
	Stage     string `json:"stage"`
	Query     string `json:"query"`
	StudentID string `json:"student_id"`
	SessionID string `json:"session_id"`
}

// AskResponse is the answer of POST /api/ask.
type AskResponse struct {
	Stage          string                   `json:"stage"`
	Response       string                   `json:"response"`
	ExecutionPath  []string                 `json:"execution_path"`
	QueryIntent    string                   `json:"query_intent,omitempty"`
	QualityScore   float64                  `json:"quality_score,omitempty"`
	SessionID      string                   `json:"session_id,omitempty"`
	Metrics        MetricsResponse          `json:"metrics"`
	ReasoningTrace []prebuilt.ReasoningStep `json:"reasoning_trace,omitempty"`
}

// MetricsResponse reports latencies in seconds.
type MetricsResponse struct {
	TotalLatency      float64        `json:"total_latency"`
	MemoryLoadLatency float64        `json:"memory_load_latency,omitempty"`
	MemorySaveLatency float64        `json:"memory_save_latency,omitempty"`
	LLMCalls          map[string]int `json:"llm_calls"`
	InputTokens       int            `json:"input_tokens"`
	OutputTokens      int            `json:"output_tokens"`
	TotalTokens       int            `json:"total_tokens"`
	ContextTokens     int            `json:"context_tokens,omitempty"`
}

func newAskResponse(stage agents.Stage, st *agents.State) AskResponse {
	m := st.Metrics
	return AskResponse{
		Stage:          stage.String(),
		Response:       st.FinalResponse,
		ExecutionPath:  st.ExecutionPath,
		QueryIntent:    st.QueryIntent,
		QualityScore:   st.QualityScore,
		SessionID:      st.SessionID,
		ReasoningTrace: st.ReasoningTrace,
		Metrics: MetricsResponse{
			TotalLatency:      m.TotalLatency.Seconds(),
			MemoryLoadLatency: m.MemoryLoadLatency.Seconds(),
			MemorySaveLatency: m.MemorySaveLatency.Seconds(),
			LLMCalls:          m.LLMCalls,
			InputTokens:       m.TokenUsage.Input,
			OutputTokens:      m.TokenUsage.Output,
			TotalTokens:       m.TokenUsage.Total,
			ContextTokens:     m.ContextTokens,
		},
	}
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if len(req.Query) > maxQuerySize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query exceeds maximum size of 4KB"})
		return
	}

	stage := s.opts.DefaultStage
	if req.Stage != "" {
		parsed, err := agents.ParseStage(req.Stage)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		stage = parsed
	}
	w, ok := s.opts.Workflows[stage]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stage " + stage.String() + " is not enabled"})
		return
	}

	var opts []agents.RunOption
	if req.StudentID != "" {
		opts = append(opts, agents.WithStudent(req.StudentID))
	}
	if req.SessionID != "" {
		opts = append(opts, agents.WithSession(req.SessionID))
	}
	st := w.Run(c.Request.Context(), req.Query, opts...)
	c.JSON(http.StatusOK, newAskResponse(stage, st))
}

func (s *Server) handleCourse(c *gin.Context) {
	course, err := s.opts.Manager.GetCourse(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.logger.Error("get course %s: %v", c.Param("code"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{"status": "ok"}
	status := http.StatusOK

	n, err := s.opts.Manager.CourseCount(ctx)
	if err != nil {
		body["status"] = "degraded"
		body["courses_error"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		body["courses"] = n
	}

	if s.opts.Memory != nil {
		if err := s.opts.Memory.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["memory"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body["memory"] = "ok"
		}
	}
	c.JSON(status, body)
}
