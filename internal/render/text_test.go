package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ycwu/xhswatch/internal/render"
)

func TestPlain(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"plain text", "好吃的面", 0, "好吃的面"},
		{"strips tags", "<p>hello <b>world</b></p>", 0, "hello world"},
		{"unescapes entities", "tom &amp; jerry", 0, "tom & jerry"},
		{"collapses whitespace", "a\n\n  b\tc", 0, "a b c"},
		{"truncates runes", "一二三四五", 3, "一二…"},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render.Plain(tt.in, tt.limit))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", render.Truncate("abc", 5))
	assert.Equal(t, "abc", render.Truncate("abc", 0))
	assert.Equal(t, "ab…", render.Truncate("abcd", 3))
}
