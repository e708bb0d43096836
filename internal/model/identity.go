package model

import (
	"encoding/json"
	"strings"
)

// CallerIdentity is what the gateway could learn about the holder of an
// Authorization credential. Empty fields mean "unresolved".
type CallerIdentity struct {
	StaffID     string `json:"staff_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func (i CallerIdentity) HasStaffID() bool {
	return i.StaffID != ""
}

func (i CallerIdentity) HasDisplayName() bool {
	return i.DisplayName != ""
}

// StaffIDValue renders the staff id for a JSON payload: canonical integer ids
// stay numbers, anything else ("007", "+5", "s-9") is sent as a string.
func (i CallerIdentity) StaffIDValue() any {
	if isJSONInteger(i.StaffID) {
		return json.Number(i.StaffID)
	}
	return i.StaffID
}

func isJSONInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
