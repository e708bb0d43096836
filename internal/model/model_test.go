package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, CacheKey("/a:x", "y"), CacheKey("/a", "x:y"))
	assert.NotEqual(t, CacheKey("/notes", "Basic a"), CacheKey("/notes", "Basic b"))
	assert.Equal(t, CacheKey("/notes", "Basic a"), CacheKey("/notes", "Basic a"))
}

func TestStaffIDValue(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"7", `{"staff_id":7}`},
		{"0", `{"staff_id":0}`},
		{"-3", `{"staff_id":-3}`},
		{"007", `{"staff_id":"007"}`},
		{"+5", `{"staff_id":"+5"}`},
		{"-", `{"staff_id":"-"}`},
		{"1e3", `{"staff_id":"1e3"}`},
		{"s-9", `{"staff_id":"s-9"}`},
	}
	for _, tc := range cases {
		out, err := json.Marshal(map[string]any{"staff_id": CallerIdentity{StaffID: tc.id}.StaffIDValue()})
		require.NoError(t, err, tc.id)
		assert.JSONEq(t, tc.want, string(out), tc.id)
	}
}
