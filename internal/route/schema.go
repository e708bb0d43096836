package route

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/blip-health/blipgate/internal/model"
)

// Verdict is the outcome of content validation.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictNotJSON
	VerdictBadContent
	VerdictUnknownResource
)

// Status maps a verdict onto the HTTP status the gateway answers with.
func (v Verdict) Status() int {
	switch v {
	case VerdictNotJSON:
		return http.StatusNotAcceptable
	case VerdictBadContent:
		return http.StatusBadRequest
	case VerdictUnknownResource:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictNotJSON:
		return "not json"
	case VerdictBadContent:
		return "bad content"
	case VerdictUnknownResource:
		return "unknown resource"
	default:
		return "unknown"
	}
}

// Mode says how a Schema reads its field list.
type Mode int

const (
	// RequireAll: every listed field must be present; extra fields are fine.
	RequireAll Mode = iota
	// AllowOnly: every present field must be listed; missing fields are fine.
	AllowOnly
)

// Schema is the minimal field contract for one resource write.
type Schema struct {
	Mode   Mode
	Fields []string
}

func (s Schema) accepts(body map[string]json.RawMessage) bool {
	switch s.Mode {
	case AllowOnly:
		for key := range body {
			if !contains(s.Fields, key) {
				return false
			}
		}
		return true
	default:
		for _, f := range s.Fields {
			if _, ok := body[f]; !ok {
				return false
			}
		}
		return true
	}
}

type schemaKey struct {
	Method   string
	Category model.Category
	Kind     Kind
}

var (
	hospitalFields = []string{"name"}
	patientFields  = []string{"name", "hospital_id", "birthdate"}
	staffFields    = []string{"name", "hospital_id", "password"}
	noteFields     = []string{"title", "body", "patient_id", "staff_id"}

	// staff_id is filled in by the gateway from the caller's identity
	noteDraftSchema = Schema{RequireAll, []string{"title", "body", "patient_id"}}
)

// Hospitals PATCH keeps the POST contract: "name" must always be sent.
var schemas = map[schemaKey]Schema{
	{http.MethodPost, model.CategoryHospital, KindCollection}: {RequireAll, hospitalFields},
	{http.MethodPost, model.CategoryPatient, KindCollection}:  {RequireAll, patientFields},
	{http.MethodPost, model.CategoryPatient, KindScreen}:      {RequireAll, []string{"images"}},
	{http.MethodPost, model.CategoryStaff, KindCollection}:    {RequireAll, staffFields},
	{http.MethodPost, model.CategoryNote, KindCollection}:     {RequireAll, noteFields},

	{http.MethodPatch, model.CategoryHospital, KindItem}: {RequireAll, hospitalFields},
	{http.MethodPatch, model.CategoryPatient, KindItem}:  {AllowOnly, patientFields},
	{http.MethodPatch, model.CategoryStaff, KindItem}:    {AllowOnly, staffFields},
	{http.MethodPatch, model.CategoryNote, KindItem}:     {AllowOnly, noteFields},
}

// SchemaFor returns the contract for a write, if one exists.
func SchemaFor(method string, category model.Category, kind Kind) (Schema, bool) {
	s, ok := schemas[schemaKey{method, category, kind}]
	return s, ok
}

func ValidatePostContent(body []byte, path string) Verdict {
	return validateContent(http.MethodPost, body, path)
}

func ValidatePatchContent(body []byte, path string) Verdict {
	return validateContent(http.MethodPatch, body, path)
}

// validateContent checks JSON well-formedness first; that verdict wins over
// every field check.
func validateContent(method string, body []byte, path string) Verdict {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return VerdictNotJSON
	}

	segs := strings.Split(path, "/")
	category, ok := model.ParseCategory(segs[0])
	if !ok {
		return VerdictUnknownResource
	}

	kind := KindItem
	if method == http.MethodPost {
		kind = KindCollection
		if category == model.CategoryPatient && len(segs) == 3 {
			kind = KindScreen
		}
	}
	schema, ok := SchemaFor(method, category, kind)
	if !ok {
		return VerdictUnknownResource
	}

	return validateObject(schema, body)
}

// ValidateNoteDraft checks a note body before the server attributes it, so
// staff_id may be absent.
func ValidateNoteDraft(body []byte) Verdict {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return VerdictNotJSON
	}
	return validateObject(noteDraftSchema, body)
}

func validateObject(schema Schema, body []byte) Verdict {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		// valid JSON, but not an object
		return VerdictBadContent
	}
	if !schema.accepts(fields) {
		return VerdictBadContent
	}
	return VerdictOK
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
