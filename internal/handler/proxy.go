package handler

import (
	"io"
	"strings"

	"github.com/blip-health/blipgate/internal/middleware"
	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/blip-health/blipgate/internal/service"
	"github.com/gin-gonic/gin"
)

const HeaderCache = "X-Cache"

// ProxyHandler relays every unmatched route to the upstream through the gateway pipeline.
type ProxyHandler struct {
	svc *service.GatewayService
}

func NewProxyHandler(svc *service.GatewayService) *ProxyHandler {
	return &ProxyHandler{svc: svc}
}

func (h *ProxyHandler) Handle(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			c.Error(apperrors.New(apperrors.ErrInvalidContent, "could not read request body", err))
			return
		}
	}

	res, err := h.svc.Handle(c.Request.Context(), service.ProxyRequest{
		RequestID:   middleware.RequestID(c),
		Method:      c.Request.Method,
		Path:        strings.TrimPrefix(c.Request.URL.Path, "/"),
		RawQuery:    c.Request.URL.RawQuery,
		ContentType: c.ContentType(),
		Header:      c.Request.Header,
		Body:        body,
	})
	if err != nil {
		c.Error(err)
		return
	}

	header := c.Writer.Header()
	for k, vs := range res.Response.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if res.Cache != "" {
		header.Set(HeaderCache, string(res.Cache))
	}
	c.Status(res.Response.StatusCode)
	_, _ = c.Writer.Write(res.Response.Body)
}
