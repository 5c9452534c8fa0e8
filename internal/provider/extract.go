package provider

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExternalID normalizes an upstream identifier to its decimal string form.
// Upstreams encode ids as JSON numbers or strings; floats with no fractional
// part are accepted since encoding/json decodes numbers into float64.
//
// Returns "" when the value is missing or not an identifier.
func ExternalID(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v != float64(int64(v)) {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return ""
	default:
		return ""
	}
}

// ExternalIDPtr is ExternalID for optional numeric ids.
func ExternalIDPtr(v *int64) string {
	if v == nil || *v == 0 {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
