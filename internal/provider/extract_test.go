package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", " 462 ", "462"},
		{"int", 8, "8"},
		{"int64", int64(23614), "23614"},
		{"whole float", float64(19134), "19134"},
		{"fractional float", 1.5, ""},
		{"json number", json.Number("85"), "85"},
		{"json number float", json.Number("8.5"), ""},
		{"unsupported", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExternalID(tt.in))
		})
	}
}

func TestExternalIDPtr(t *testing.T) {
	t.Parallel()
	n := int64(462)
	zero := int64(0)
	assert.Equal(t, "462", ExternalIDPtr(&n))
	assert.Equal(t, "", ExternalIDPtr(&zero))
	assert.Equal(t, "", ExternalIDPtr(nil))
}
