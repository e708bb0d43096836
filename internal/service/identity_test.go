package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfUpstream(status int, body string) *fakeUpstream {
	return &fakeUpstream{respond: func(req model.UpstreamRequest) (*model.UpstreamResponse, error) {
		return jsonResponse(status, body), nil
	}}
}

func TestStaffIDFromUpstream(t *testing.T) {
	up := selfUpstream(http.StatusOK, `{"id":7,"name":"Dr Who"}`)
	r := NewIdentityResolver(up, NameFromUpstream)

	id := r.StaffID(context.Background(), "Bearer abc")
	assert.True(t, id.HasStaffID())
	assert.Equal(t, "7", id.StaffID)

	calls := up.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "staffs/me", calls[0].Path)
	assert.Equal(t, "Bearer abc", calls[0].Header.Get("Authorization"))
}

func TestStaffIDAcceptsStringIDs(t *testing.T) {
	r := NewIdentityResolver(selfUpstream(http.StatusOK, `{"id":"s-9"}`), NameFromUpstream)
	assert.Equal(t, "s-9", r.StaffID(context.Background(), "Bearer abc").StaffID)
}

func TestStaffIDUnresolved(t *testing.T) {
	cases := map[string]*fakeUpstream{
		"unauthorized": selfUpstream(http.StatusUnauthorized, `{"detail":"no"}`),
		"not json":     selfUpstream(http.StatusOK, `<html>`),
		"missing id":   selfUpstream(http.StatusOK, `{"name":"x"}`),
		"array":        selfUpstream(http.StatusOK, `[1]`),
		"transport": {respond: func(model.UpstreamRequest) (*model.UpstreamResponse, error) {
			return nil, errors.New("connection refused")
		}},
	}
	for name, up := range cases {
		r := NewIdentityResolver(up, NameFromUpstream)
		assert.False(t, r.StaffID(context.Background(), "Bearer abc").HasStaffID(), name)
	}

	up := selfUpstream(http.StatusOK, `{"id":1}`)
	assert.False(t, NewIdentityResolver(up, NameFromUpstream).StaffID(context.Background(), "").HasStaffID())
	assert.Empty(t, up.Calls())
}

func TestDisplayNameFromUpstream(t *testing.T) {
	r := NewIdentityResolver(selfUpstream(http.StatusOK, `{"id":7,"name":"Dr Who"}`), NameFromUpstream)
	assert.Equal(t, "Dr Who", r.DisplayName(context.Background(), "Bearer abc").DisplayName)

	r = NewIdentityResolver(selfUpstream(http.StatusOK, `{"id":7}`), NameFromUpstream)
	assert.False(t, r.DisplayName(context.Background(), "Bearer abc").HasDisplayName())
}

func TestDisplayNameFromBasicNeedsNoUpstream(t *testing.T) {
	up := selfUpstream(http.StatusOK, `{"name":"ignored"}`)
	r := NewIdentityResolver(up, NameFromBasic)

	cred := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	assert.Equal(t, "alice", r.DisplayName(context.Background(), cred).DisplayName)
	assert.False(t, r.DisplayName(context.Background(), "Bearer abc").HasDisplayName())
	assert.Empty(t, up.Calls())
}

func TestBasicUsername(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Basic " + enc("bob:pw"), "bob", true},
		{"basic " + enc("bob:pw:with:colons"), "bob", true},
		{"Basic " + enc("nocolon"), "", false},
		{"Basic " + enc(":pw"), "", false},
		{"Basic !!!", "", false},
		{"Bearer " + enc("bob:pw"), "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := BasicUsername(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
