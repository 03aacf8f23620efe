package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSkuCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "ABC-001", "ABC-001"},
		{"ascii parentheses", "ABC-001(红色)", "ABC-001"},
		{"full-width parentheses", "ABC-001（红色 XL）", "ABC-001"},
		{"mixed parentheses", "ABC-001（赠品)", "ABC-001"},
		{"tabs removed", "ABC\t-001", "ABC-001"},
		{"whitespace collapsed", "  ABC   001  ", "ABC 001"},
		{"nan", "nan", ""},
		{"NaN", "NaN", ""},
		{"empty", "", ""},
		{"only remark", "(赠品)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSkuCode(tt.raw))
		})
	}
}
