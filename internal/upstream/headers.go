package upstream

import (
	"net/http"
	"strings"
)

// hopByHop lists headers that describe a single connection or the encoding of
// a body we have already buffered, so they are never relayed.
var hopByHop = []string{
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
}

var requestSkip = []string{
	"Host",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Accept-Encoding",
}

// SanitizeResponseHeaders copies h without hop-by-hop headers. Values keep
// their order within each key.
func SanitizeResponseHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if isListed(k, hopByHop) {
			continue
		}
		vv := make([]string, len(vs))
		copy(vv, vs)
		out[k] = vv
	}
	return out
}

// CopyRequestHeaders forwards inbound headers, Authorization included.
func CopyRequestHeaders(dst, src http.Header) {
	for k, vs := range src {
		if isListed(k, requestSkip) {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func isListed(name string, list []string) bool {
	for _, h := range list {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
