package handler

import (
	"net/http"
	"strconv"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/blip-health/blipgate/internal/service"
	"github.com/gin-gonic/gin"
)

const maxAuditLimit = 1000

type AuditHandler struct {
	svc *service.AuditService
}

// NewAuditHandler accepts a nil service when auditing is disabled.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Error(apperrors.NewInvalidContent("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxAuditLimit)
	}

	if h.svc == nil {
		c.JSON(http.StatusOK, []*model.AuditEvent{})
		return
	}
	records, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}
