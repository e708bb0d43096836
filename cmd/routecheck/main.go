package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/blip-health/blipgate/internal/route"
)

// routecheck prints how the gateway classifies METHOD PATH [BODY], without
// contacting the upstream. Exit status 1 means the request would be rejected.
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: routecheck METHOD PATH [JSON_BODY]")
		os.Exit(2)
	}
	method := strings.ToUpper(os.Args[1])
	path := strings.TrimPrefix(os.Args[2], "/")

	if !route.SupportedMethod(method) {
		fmt.Printf("%s /%s: method not allowed\n", method, path)
		os.Exit(1)
	}
	r, ok := route.Resolve(method, path)
	if !ok {
		fmt.Printf("%s /%s: rejected (404)\n", method, path)
		os.Exit(1)
	}
	fmt.Printf("%s /%s: %s category=%s id=%q\n", method, path, r.Kind, r.Category, r.ID)

	if len(os.Args) < 4 {
		return
	}
	body := []byte(os.Args[3])
	var verdict route.Verdict
	switch method {
	case "POST":
		verdict = route.ValidatePostContent(body, path)
	case "PATCH":
		verdict = route.ValidatePatchContent(body, path)
	default:
		fmt.Println("body ignored for", method)
		return
	}
	fmt.Printf("content: %s (%d)\n", verdict, verdict.Status())
	if verdict != route.VerdictOK {
		os.Exit(1)
	}
}
