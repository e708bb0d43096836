// Package route decides which inbound (method, path) pairs map to a known
// resource shape, and whether a write body satisfies that resource's schema.
package route

import (
	"net/http"
	"strings"

	"github.com/blip-health/blipgate/internal/model"
)

// Kind is the closed set of path shapes the gateway understands.
type Kind int

const (
	KindInvalid    Kind = iota
	KindCollection      // {category}
	KindItem            // {category}/{id}
	KindSelf            // staffs/me
	KindScreen          // patients/{id}/screen
)

func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindItem:
		return "item"
	case KindSelf:
		return "self"
	case KindScreen:
		return "screen"
	default:
		return "invalid"
	}
}

const (
	selfToken   = "me"
	screenToken = "screen"
)

// Route is a parsed path. ID is set for KindItem and KindScreen.
type Route struct {
	Kind     Kind
	Category model.Category
	ID       string
}

// Parse classifies a path (without its leading slash) into a route shape.
// It knows nothing about methods; Resolve applies the per-method table.
func Parse(path string) Route {
	segs := strings.Split(path, "/")
	category, ok := model.ParseCategory(segs[0])
	if !ok {
		return Route{}
	}

	switch len(segs) {
	case 1:
		return Route{Kind: KindCollection, Category: category}
	case 2:
		if isDigits(segs[1]) {
			return Route{Kind: KindItem, Category: category, ID: segs[1]}
		}
		if category == model.CategoryStaff && segs[1] == selfToken {
			return Route{Kind: KindSelf, Category: category}
		}
	case 3:
		if category == model.CategoryPatient && isDigits(segs[1]) && segs[2] == screenToken {
			return Route{Kind: KindScreen, Category: category, ID: segs[1]}
		}
	}
	return Route{}
}

var allowedKinds = map[string]map[Kind]bool{
	http.MethodGet:    {KindCollection: true, KindItem: true, KindSelf: true},
	http.MethodDelete: {KindItem: true},
	http.MethodPost:   {KindCollection: true, KindScreen: true},
	http.MethodPatch:  {KindItem: true},
}

// Resolve parses path and checks that method may address that shape.
func Resolve(method, path string) (Route, bool) {
	kinds, ok := allowedKinds[method]
	if !ok {
		return Route{}, false
	}
	r := Parse(path)
	if !kinds[r.Kind] {
		return Route{}, false
	}
	return r, true
}

// SupportedMethod reports whether the gateway proxies method at all.
func SupportedMethod(method string) bool {
	_, ok := allowedKinds[method]
	return ok
}

func ValidateGetPath(path string) bool {
	_, ok := Resolve(http.MethodGet, path)
	return ok
}

func ValidateDeletePath(path string) bool {
	_, ok := Resolve(http.MethodDelete, path)
	return ok
}

func ValidatePostPath(path string) bool {
	_, ok := Resolve(http.MethodPost, path)
	return ok
}

func ValidatePatchPath(path string) bool {
	_, ok := Resolve(http.MethodPatch, path)
	return ok
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
