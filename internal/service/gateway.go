package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/apperrors"
	"github.com/blip-health/blipgate/internal/route"
)

const jsonContentType = "application/json"

// AuditRecorder accepts audit requests without blocking.
type AuditRecorder interface {
	Log(req model.AuditRequest) bool
}

// ProxyRequest is one inbound call, path without the leading slash.
type ProxyRequest struct {
	RequestID   string
	Method      string
	Path        string
	RawQuery    string
	ContentType string // media type without parameters
	Header      http.Header
	Body        []byte
}

func (r ProxyRequest) authorization() string {
	return r.Header.Get("Authorization")
}

type ProxyResult struct {
	Response *model.UpstreamResponse
	Cache    CacheResult // empty when the cache was not consulted
}

// GatewayService runs the validate → enrich → forward → post-process pipeline.
// Validation failures are returned before any upstream call is made.
type GatewayService struct {
	upstream  Forwarder
	cache     *ResponseCache
	identity  *IdentityResolver
	screening *ScreeningOrchestrator
	audit     AuditRecorder
}

// NewGatewayService wires the pipeline; cache and audit may be nil.
func NewGatewayService(upstream Forwarder, cache *ResponseCache, identity *IdentityResolver, screening *ScreeningOrchestrator, audit AuditRecorder) *GatewayService {
	return &GatewayService{
		upstream:  upstream,
		cache:     cache,
		identity:  identity,
		screening: screening,
		audit:     audit,
	}
}

func (g *GatewayService) Handle(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	if !route.SupportedMethod(req.Method) {
		return nil, apperrors.New(apperrors.ErrMethodNotAllowed, "method not allowed", nil)
	}
	if req.Path == "" {
		if req.Method != http.MethodGet {
			return nil, apperrors.New(apperrors.ErrMethodNotAllowed, "method not allowed", nil)
		}
		return g.get(ctx, req)
	}
	if req.authorization() == "" {
		return nil, apperrors.NewAuthFailed("No Authorization header")
	}

	switch req.Method {
	case http.MethodGet:
		if _, ok := route.Resolve(req.Method, req.Path); !ok {
			return nil, apperrors.NewNotFound("Invalid request")
		}
		return g.get(ctx, req)
	case http.MethodDelete:
		if _, ok := route.Resolve(req.Method, req.Path); !ok {
			return nil, apperrors.NewNotFound("Invalid request")
		}
		return g.delete(ctx, req)
	case http.MethodPost:
		return g.post(ctx, req)
	default:
		return g.patch(ctx, req)
	}
}

func (g *GatewayService) get(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	upReq := g.upstreamRequest(req, req.Body)
	fetch := func(ctx context.Context) (*model.UpstreamResponse, error) {
		return g.upstream.Forward(ctx, upReq)
	}

	var (
		resp   *model.UpstreamResponse
		result CacheResult
		err    error
	)
	if g.cache != nil {
		key := req.Path
		if req.RawQuery != "" {
			key += "?" + req.RawQuery
		}
		resp, result, err = g.cache.Fetch(ctx, model.CacheKey(key, req.authorization()), fetch)
	} else {
		resp, err = fetch(ctx)
	}
	if err != nil {
		return nil, apperrors.NewUpstream(err)
	}

	if req.Path != "" && resp.OK() {
		g.record(req, model.AuditView, "")
	}
	return &ProxyResult{Response: resp, Cache: result}, nil
}

func (g *GatewayService) delete(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	resp, err := g.upstream.Forward(ctx, g.upstreamRequest(req, nil))
	if err != nil {
		return nil, apperrors.NewUpstream(err)
	}
	if resp.OK() {
		action := model.AuditDelete
		if !json.Valid(resp.Body) {
			action = model.AuditDeleteAttempt
		}
		g.record(req, action, "")
	}
	return &ProxyResult{Response: resp}, nil
}

func (g *GatewayService) post(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	if req.ContentType != jsonContentType {
		return nil, apperrors.NewNotAcceptable("Invalid Content-Type")
	}
	r, ok := route.Resolve(req.Method, req.Path)
	if !ok {
		return nil, apperrors.NewNotFound("Invalid path")
	}
	if !json.Valid(req.Body) {
		return nil, verdictError(route.VerdictNotJSON)
	}

	body := req.Body
	if r.Category == model.CategoryNote && r.Kind == route.KindCollection {
		if v := route.ValidateNoteDraft(body); v != route.VerdictOK {
			return nil, verdictError(v)
		}
		staff := g.identity.StaffID(ctx, req.authorization())
		if !staff.HasStaffID() {
			return nil, apperrors.NewAuthFailed("Invalid Credentials")
		}
		body = injectStaffID(body, staff)
	}
	if v := route.ValidatePostContent(body, req.Path); v != route.VerdictOK {
		return nil, verdictError(v)
	}

	resp, err := g.upstream.Forward(ctx, g.upstreamRequest(req, body))
	if err != nil {
		return nil, apperrors.NewUpstream(err)
	}

	if r.Kind == route.KindScreen {
		if !resp.OK() {
			return &ProxyResult{Response: resp}, nil
		}
		staff := g.identity.StaffID(ctx, req.authorization())
		if !staff.HasStaffID() {
			return nil, apperrors.NewAuthFailed("Invalid Credentials")
		}
		// the screening result is returned even when the note cannot be created
		_ = g.screening.Submit(ctx, req.authorization(), r.ID, staff, body, resp.Body)
		g.record(req, model.AuditScreening, r.ID)
		return &ProxyResult{Response: resp}, nil
	}

	if resp.OK() {
		if id := responseID(resp.Body); id != "" {
			g.record(req, model.AuditCreate, id)
		}
	}
	return &ProxyResult{Response: resp}, nil
}

func (g *GatewayService) patch(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	if req.ContentType != jsonContentType {
		return nil, apperrors.NewNotAcceptable("Invalid Content-Type")
	}
	if _, ok := route.Resolve(req.Method, req.Path); !ok {
		return nil, apperrors.NewNotFound("Invalid path")
	}
	if v := route.ValidatePatchContent(req.Body, req.Path); v != route.VerdictOK {
		return nil, verdictError(v)
	}

	resp, err := g.upstream.Forward(ctx, g.upstreamRequest(req, req.Body))
	if err != nil {
		return nil, apperrors.NewUpstream(err)
	}
	if resp.OK() {
		action := model.AuditUpdate
		if !json.Valid(resp.Body) {
			action = model.AuditUpdateAttempt
		}
		g.record(req, action, "")
	}
	return &ProxyResult{Response: resp}, nil
}

func (g *GatewayService) upstreamRequest(req ProxyRequest, body []byte) model.UpstreamRequest {
	return model.UpstreamRequest{
		Method:   req.Method,
		Path:     req.Path,
		RawQuery: req.RawQuery,
		Header:   req.Header,
		Body:     body,
	}
}

func (g *GatewayService) record(req ProxyRequest, action model.AuditAction, id string) {
	if g.audit == nil {
		return
	}
	g.audit.Log(model.AuditRequest{
		RequestID:     req.RequestID,
		Authorization: req.authorization(),
		Action:        action,
		Path:          req.Path,
		ResourceID:    id,
	})
}

func verdictError(v route.Verdict) error {
	switch v {
	case route.VerdictNotJSON:
		return apperrors.NewNotAcceptable("Invalid Content-Type")
	case route.VerdictUnknownResource:
		return apperrors.NewNotFound("Invalid request")
	default:
		return apperrors.NewInvalidContent("Invalid content")
	}
}

// injectStaffID overwrites staff_id with the resolved caller. Bodies that are
// not JSON objects are returned untouched for the schema check to reject.
func injectStaffID(body []byte, staff model.CallerIdentity) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return body
	}
	raw, err := json.Marshal(staff.StaffIDValue())
	if err != nil {
		return body
	}
	fields["staff_id"] = raw
	out, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return out
}

func responseID(body []byte) string {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return ""
	}
	return scalarString(fields["id"])
}
