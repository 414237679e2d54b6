package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freight-platform/pricing-service/internal/application"
	"github.com/freight-platform/pricing-service/pkg/errors"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/middleware"
)

// PricingService is the application surface used by the handler
type PricingService interface {
	PriceCase(ctx context.Context, cmd application.PriceCaseCommand) (*application.PricingResultDTO, error)
	GetDecisions(ctx context.Context, query application.GetDecisionsQuery) (*application.DecisionsDTO, error)
}

// PricingHandler handles HTTP requests for case pricing
type PricingHandler struct {
	service PricingService
	logger  *logging.Logger
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service PricingService, logger *logging.Logger) *PricingHandler {
	return &PricingHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the pricing routes on group
func (h *PricingHandler) RegisterRoutes(group *gin.RouterGroup) {
	cases := group.Group("/cases/:caseId/pricing")
	cases.POST("", h.PriceCase)
	cases.GET("/decisions", h.GetDecisions)
}

// PriceCase handles POST /api/v1/cases/:caseId/pricing
func (h *PricingHandler) PriceCase(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.PriceCaseCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd.CaseID = c.Param("caseId")
	cmd.CorrelationID = middleware.GetCorrelationID(c)

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"case.id":     cmd.CaseID,
		"lines.count": len(cmd.Lines),
	})

	result, err := h.service.PriceCase(c.Request.Context(), cmd)
	if err != nil {
		respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetDecisions handles GET /api/v1/cases/:caseId/pricing/decisions
func (h *PricingHandler) GetDecisions(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	caseID := c.Param("caseId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"case.id": caseID,
	})

	result, err := h.service.GetDecisions(c.Request.Context(), application.GetDecisionsQuery{CaseID: caseID})
	if err != nil {
		respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondWithError(err)
}
