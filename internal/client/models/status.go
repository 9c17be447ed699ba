package models

import (
	"encoding/json"
	"strings"
)

// Status is the condition of an asset or tool. Asset collections use the
// health tiers, tool collections use the operational set.
type Status string

const (
	StatusGood             Status = "good"
	StatusNeedsMaintenance Status = "needs-maintenance"
	StatusDanger           Status = "danger"

	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusDamaged     Status = "damaged"
)

// legacy tier names still emitted by some backends
var statusAliases = map[string]Status{
	"sonic":             StatusGood,
	"tails":             StatusNeedsMaintenance,
	"eggman":            StatusDanger,
	"needs_maintenance": StatusNeedsMaintenance,
}

// ParseStatus normalizes a backend status string. Unknown values are kept
// verbatim so they still render.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := statusAliases[key]; ok {
		return st
	}
	return Status(key)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}
