package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/questiongen"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`

	// Failure describes a failed generation in full.
	Failure *questiongen.Failure `json:"failure,omitempty"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondFailure maps a generation failure to a status code. Model output
// that never validated is 422; gateway trouble is 502 (or 429 when the
// provider throttled us).
func respondFailure(c *gin.Context, f *questiongen.Failure) {
	status := http.StatusUnprocessableEntity
	switch f.Kind {
	case questiongen.KindGateway:
		status = http.StatusBadGateway
		var rl *llm.ErrRateLimit
		if errors.As(f, &rl) {
			status = http.StatusTooManyRequests
		}
	case questiongen.KindCancelled:
		status = statusClientClosedRequest
	}
	c.JSON(status, ErrorEnvelope{
		Error:   APIError{Message: f.Message, Code: string(f.Kind)},
		Failure: f,
	})
}

// statusClientClosedRequest is the de facto code for a request the client
// abandoned.
const statusClientClosedRequest = 499
