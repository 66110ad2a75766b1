package norms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

func TestParseAgeBracket(t *testing.T) {
	tests := []struct {
		in     string
		want   norms.AgeBracket
		wantOK bool
	}{
		{"18-29", norms.AgeBracket{Min: 18, Max: 29}, true},
		{"18 a 29", norms.AgeBracket{Min: 18, Max: 29}, true},
		{"30 - 39 anos", norms.AgeBracket{Min: 30, Max: 39}, true},
		{"60+", norms.AgeBracket{Min: 60, Max: -1}, true},
		{" 60+ anos ", norms.AgeBracket{Min: 60, Max: -1}, true},
		{"29-18", norms.AgeBracket{}, false},
		{"adultos", norms.AgeBracket{}, false},
		{"", norms.AgeBracket{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := norms.ParseAgeBracket(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAgeBracket_Contains(t *testing.T) {
	b := norms.AgeBracket{Min: 18, Max: 29}
	assert.True(t, b.Contains(18))
	assert.True(t, b.Contains(29))
	assert.False(t, b.Contains(30))
	assert.False(t, b.Contains(17))

	open := norms.AgeBracket{Min: 60, Max: -1}
	assert.True(t, open.Contains(99))
}
