package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/reasoning"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/validation"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/utils"
)

// Version is reported by the root and health endpoints
const Version = "0.1.0"

// Reasoner answers a query through multi-path reasoning
type Reasoner interface {
	Reason(ctx context.Context, query string, qctx map[string]any) (*reasoning.Result, error)
}

// Validator runs Monte Carlo validation
type Validator interface {
	Validate(ctx context.Context, req validation.Request) (*validation.Result, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	reasoner  Reasoner
	validator Validator
	breakers  *resilience.Registry
	logger    *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(reasoner Reasoner, validator Validator, breakers *resilience.Registry, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		reasoner:  reasoner,
		validator: validator,
		breakers:  breakers,
		logger:    logger.Named("handlers"),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/reason", h.Reason)
	v1.POST("/validate", h.Validate)
	v1.GET("/breakers", h.ListBreakers)
	v1.POST("/breakers/:name/reset", h.ResetBreaker)
}

// ReasonRequest is the body of POST /v1/reason
type ReasonRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

// ReasonResponse is a reasoning result; Degraded is set when no path could
// be generated.
type ReasonResponse struct {
	*reasoning.Result
	Degraded bool `json:"degraded"`
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "reasoner",
		"version": Version,
	})
}

// Health reports service health. Open breakers degrade the status without
// failing the check.
func (h *Handlers) Health(c *gin.Context) {
	stats := h.breakers.Stats()

	status := "healthy"
	open := make([]string, 0)
	for _, s := range stats {
		if s.State == resilience.StateOpen.String() {
			open = append(open, s.Name)
		}
	}
	if len(open) > 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"version":       Version,
		"open_breakers": open,
	})
}

// Reason handles POST /v1/reason
func (h *Handlers) Reason(c *gin.Context) {
	var req ReasonRequest
	if err := bind(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := validateQuery(req.Query, req.Context); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.reasoner.Reason(c.Request.Context(), req.Query, req.Context)
	switch {
	case errors.Is(err, reasoning.ErrEmptyQuery):
		h.badRequest(c, err)
	case errors.Is(err, reasoning.ErrNoPaths):
		c.JSON(http.StatusOK, ReasonResponse{Result: result, Degraded: true})
	case err != nil:
		h.internalError(c, err)
	default:
		c.JSON(http.StatusOK, ReasonResponse{Result: result})
	}
}

// Validate handles POST /v1/validate
func (h *Handlers) Validate(c *gin.Context) {
	var req validation.Request
	if err := bind(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := validateQuery(req.Query, req.Context); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.validator.Validate(c.Request.Context(), req)
	switch {
	case errors.Is(err, validation.ErrInvalidRequest):
		h.badRequest(c, err)
	case err != nil:
		h.internalError(c, err)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// ListBreakers handles GET /v1/breakers
func (h *Handlers) ListBreakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"breakers": h.breakers.Stats()})
}

// ResetBreaker handles POST /v1/breakers/:name/reset
func (h *Handlers) ResetBreaker(c *gin.Context) {
	name := c.Param("name")
	if err := utils.ValidateID(name, "breaker name"); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.breakers.Reset(name); err != nil {
		if errors.Is(err, resilience.ErrUnknownBreaker) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	h.logger.Info("Circuit breaker reset", zap.String("breaker", name))
	c.JSON(http.StatusOK, gin.H{"success": true, "breaker": name})
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handlers) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// validateQuery bounds the query length and context size. Blank queries are
// left to the domain so its error surfaces unchanged.
func validateQuery(query string, qctx map[string]any) error {
	if err := utils.ValidateString(query, "query", utils.MaxQueryLength, false); err != nil {
		return err
	}
	return utils.ValidateContext(qctx)
}

// bind decodes the JSON body into v with sonic
func bind(c *gin.Context, v any) error {
	body, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := utils.ValidateSize(body, utils.MaxJSONSize); err != nil {
		return err
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
