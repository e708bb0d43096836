package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/blip-health/blipgate/internal/model"
)

type fakeUpstream struct {
	mu      sync.Mutex
	calls   []model.UpstreamRequest
	respond func(req model.UpstreamRequest) (*model.UpstreamResponse, error)
}

func (f *fakeUpstream) Forward(_ context.Context, req model.UpstreamRequest) (*model.UpstreamResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeUpstream) Calls() []model.UpstreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UpstreamRequest, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeUpstream) CallsTo(method, path string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func jsonResponse(status int, body string) *model.UpstreamResponse {
	return &model.UpstreamResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
		Attempts:   1,
	}
}
