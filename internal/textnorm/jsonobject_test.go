package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{name: "direct", in: `{"a": 1}`, want: map[string]any{"a": 1.0}},
		{name: "fenced", in: "Here you go:\n```json\n{\"mode\": \"single\"}\n```\nthanks", want: map[string]any{"mode": "single"}},
		{name: "embedded", in: `Sure! {"queries": ["x"]} hope it helps`, want: map[string]any{"queries": []any{"x"}}},
		{name: "array is not an object", in: `[1,2,3]`, want: nil},
		{name: "garbage", in: `not json at all`, want: nil},
		{name: "broken braces", in: `{"a": }`, want: nil},
		{name: "empty", in: "   ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractJSONObject(tt.in))
		})
	}
}
