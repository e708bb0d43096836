package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/logger"
)

const selfPath = "staffs/me"

// Display name strategies.
const (
	NameFromUpstream = "upstream"
	NameFromBasic    = "basic"
)

// Forwarder performs one upstream call and buffers the response.
type Forwarder interface {
	Forward(ctx context.Context, req model.UpstreamRequest) (*model.UpstreamResponse, error)
}

// IdentityResolver derives who is behind an Authorization value. Nothing is
// cached between requests; an unresolved identity is a normal outcome.
type IdentityResolver struct {
	upstream   Forwarder
	nameSource string
}

func NewIdentityResolver(upstream Forwarder, nameSource string) *IdentityResolver {
	if nameSource == "" {
		nameSource = NameFromUpstream
	}
	return &IdentityResolver{upstream: upstream, nameSource: nameSource}
}

// StaffID asks the upstream who the credential belongs to and returns the "id".
func (r *IdentityResolver) StaffID(ctx context.Context, authorization string) model.CallerIdentity {
	fields, ok := r.self(ctx, authorization)
	if !ok {
		return model.CallerIdentity{}
	}
	return model.CallerIdentity{StaffID: scalarString(fields["id"])}
}

// DisplayName names the caller for audit messages using the configured strategy.
func (r *IdentityResolver) DisplayName(ctx context.Context, authorization string) model.CallerIdentity {
	if r.nameSource == NameFromBasic {
		name, _ := BasicUsername(authorization)
		return model.CallerIdentity{DisplayName: name}
	}
	fields, ok := r.self(ctx, authorization)
	if !ok {
		return model.CallerIdentity{}
	}
	name, _ := fields["name"].(string)
	return model.CallerIdentity{DisplayName: name}
}

func (r *IdentityResolver) self(ctx context.Context, authorization string) (map[string]any, bool) {
	if authorization == "" {
		return nil, false
	}
	header := http.Header{}
	header.Set("Authorization", authorization)
	resp, err := r.upstream.Forward(ctx, model.UpstreamRequest{
		Method: http.MethodGet,
		Path:   selfPath,
		Header: header,
	})
	if err != nil {
		logger.Debug("identity lookup failed", "error", err)
		return nil, false
	}
	if !resp.OK() {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// BasicUsername decodes a "Basic base64(user:pass)" credential and returns user.
func BasicUsername(authorization string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", false
	}
	user, _, ok := strings.Cut(string(raw), ":")
	if !ok || user == "" {
		return "", false
	}
	return user, true
}

// scalarString renders a JSON id that may arrive as a number or a string.
func scalarString(v any) string {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case string:
		return t
	default:
		return ""
	}
}
