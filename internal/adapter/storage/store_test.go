package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberCoercions(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float64", 12.5, 12.5},
		{"int", 7, 7},
		{"int64", int64(-3), -3},
		{"json number", json.Number("2.25"), 2.25},
		{"numeric string", "75", 75},
		{"numeric string with spaces", " 75.5 ", 75.5},
		{"negative numeric string", "-4", -4},
		{"non-numeric string", "lots", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.in))
		})
	}
}
