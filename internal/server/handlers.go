package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/quizgen/internal/bulk"
	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/question"
	"github.com/abhisek/quizgen/internal/questiongen"
)

// generateParams mirrors the sampling options clients send. Unset fields
// keep the configured defaults.
type generateParams struct {
	Temperature     *float64 `json:"temperature"`
	TopP            *float64 `json:"top_p"`
	MaxOutputTokens *int     `json:"max_output_tokens"`
}

func (p generateParams) isZero() bool {
	return p.Temperature == nil && p.TopP == nil && p.MaxOutputTokens == nil
}

type generateRequest struct {
	// Engine selects the model for this request. Empty uses the
	// configured model.
	Engine       string         `json:"engine"`
	Prompt       string         `json:"prompt"`
	QuestionType string         `json:"questionType"`
	NumQuestions int            `json:"numQuestions"`
	Concurrency  int            `json:"concurrency"`
	Params       generateParams `json:"params"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type templateResponse struct {
	Type   question.Type   `json:"questionType"`
	Label  string          `json:"label"`
	Shape  json.RawMessage `json:"shape"`
	Rules  []string        `json:"rules"`
	Schema map[string]any  `json:"schema"`
}

// getTemplate returns the registry entry for a type. Unknown types get the
// matching template, the same fallback generation uses.
func (s *Server) getTemplate(c *gin.Context) {
	tpl := questiongen.TemplateFor(question.Resolve(c.Param("type")))
	c.JSON(http.StatusOK, templateResponse{
		Type:   tpl.Type,
		Label:  tpl.Type.Label(),
		Shape:  json.RawMessage(tpl.Shape),
		Rules:  tpl.Rules,
		Schema: tpl.Schema.Definition,
	})
}

// generateText sends the prompt as-is and returns the model's text.
func (s *Server) generateText(c *gin.Context) {
	var req generateRequest
	if !s.bind(c, &req) {
		return
	}

	cfg, err := s.generationConfig(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_params", err)
		return
	}
	llmReq := llm.UserPrompt("", req.Prompt)
	llmReq.MaxTokens = cfg.MaxTokens
	llmReq.Temperature = cfg.Temperature
	llmReq.TopP = cfg.TopP
	llmReq.Model = cfg.Model

	ctx := llm.WithPurpose(c.Request.Context(), llm.PurposeRawText)
	resp, err := s.provider.Generate(ctx, llmReq)
	if err != nil {
		status, code := gatewayStatus(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp.Text})
}

// generateStructured produces one validated question.
func (s *Server) generateStructured(c *gin.Context) {
	var req generateRequest
	if !s.bind(c, &req) {
		return
	}
	cfg, err := s.generationConfig(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_params", err)
		return
	}

	gen := questiongen.New(s.provider, cfg, s.log)
	q, err := gen.GenerateOne(c.Request.Context(), req.Prompt, question.Resolve(req.QuestionType))
	if err != nil {
		respondFailure(c, questiongen.AsFailure(err))
		return
	}
	c.JSON(http.StatusOK, q)
}

// generateBulk produces numQuestions outcomes. Individual failures are part
// of a 200 response; only an invalid request is an error.
func (s *Server) generateBulk(c *gin.Context) {
	breq, orch, ok := s.bulkRequest(c)
	if !ok {
		return
	}
	res, err := orch.GenerateBulk(c.Request.Context(), breq, nil)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// generateBulkStream is generateBulk over server-sent events: one
// "progress" event per completed item, then a single "result" event.
func (s *Server) generateBulkStream(c *gin.Context) {
	breq, orch, ok := s.bulkRequest(c)
	if !ok {
		return
	}
	if err := breq.Validate(orch.Config()); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	// Progress fires at most once per item, so the buffer never fills.
	events := make(chan bulk.Progress, breq.Count)
	type outcome struct {
		res *bulk.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := orch.GenerateBulk(c.Request.Context(), breq, func(p bulk.Progress) { events <- p })
		close(events)
		done <- outcome{res, err}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	for p := range events {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	}
	out := <-done
	if out.err != nil {
		c.SSEvent("error", ErrorEnvelope{Error: APIError{Message: out.err.Error(), Code: "invalid_request"}})
	} else {
		c.SSEvent("result", out.res)
	}
	c.Writer.Flush()
}

func (s *Server) bulkRequest(c *gin.Context) (bulk.Request, *bulk.Orchestrator, bool) {
	var req generateRequest
	if !s.bind(c, &req) {
		return bulk.Request{}, nil, false
	}

	orch := s.orch
	if !req.Params.isZero() || req.Engine != "" {
		cfg, err := s.generationConfig(req)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_params", err)
			return bulk.Request{}, nil, false
		}
		orch = orch.WithGenerator(questiongen.New(s.provider, cfg, s.log))
	}

	return bulk.Request{
		SegmentText:      req.Prompt,
		Type:             question.Resolve(req.QuestionType),
		Count:            req.NumQuestions,
		ConcurrencyLimit: req.Concurrency,
	}, orch, true
}

func (s *Server) bind(c *gin.Context, req *generateRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err)
		return false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("prompt is required"))
		return false
	}
	return true
}

func (s *Server) generationConfig(req generateRequest) (questiongen.Config, error) {
	cfg := s.genCfg
	if e := strings.TrimSpace(req.Engine); e != "" {
		cfg.Model = e
	}
	p := req.Params
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		cfg.TopP = *p.TopP
	}
	if p.MaxOutputTokens != nil {
		cfg.MaxTokens = *p.MaxOutputTokens
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("params: %w", err)
	}
	return cfg, nil
}

func gatewayStatus(err error) (int, string) {
	var rl *llm.ErrRateLimit
	var to *llm.ErrTimeout
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.As(err, &to):
		return http.StatusGatewayTimeout, "timeout"
	case llm.ClassOf(err) == llm.ClassCanceled:
		return statusClientClosedRequest, "cancelled"
	}
	return http.StatusBadGateway, "gateway"
}
