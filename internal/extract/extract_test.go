package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestFindMediaURL(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"url key", `{"url": "https://x/a.png"}`, "https://x/a.png", true},
		{"priority key beats positional scan", `["noise", {"b64_json": "https://x/b.png"}]`, "https://x/b.png", true},
		{"no match", `{"foo": "bar"}`, "", false},
		{"null", `null`, "", false},
		{"number", `42`, "", false},
		{"markdown image", `"here you go ![img](https://cdn/m.png) enjoy"`, "https://cdn/m.png", true},
		{"bare url", `"  https://cdn/bare.png  "`, "https://cdn/bare.png", true},
		{"data uri", `"data:image/png;base64,AAAA"`, "data:image/png;base64,AAAA", true},
		{"embedded url", `"see https://cdn/e.png for the result"`, "https://cdn/e.png", true},
		{"markdown wins over embedded", `"https://first.example and ![a](https://cdn/md.png)"`, "https://cdn/md.png", true},
		{"priority order url before data", `{"data": "https://cdn/d.png", "url": "https://cdn/u.png"}`, "https://cdn/u.png", true},
		{"priority miss falls back to others", `{"url": "not a link", "zeta": {"nested": "https://cdn/n.png"}}`, "https://cdn/n.png", true},
		{"fallback ignores scalars", `{"a": 1, "b": true, "c": "nothing"}`, "", false},
		{
			"chat completion shape",
			`{"choices":[{"message":{"role":"assistant","content":"![image](https://cdn/chat.png)"}}]}`,
			"https://cdn/chat.png", true,
		},
		{"array order", `[{"x": "nope"}, "https://cdn/1.png", "https://cdn/2.png"]`, "https://cdn/1.png", true},
		{"empty structures", `{"url": "", "data": [], "content": {}}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindMediaURL(decode(t, tt.input))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMediaURL_Deterministic(t *testing.T) {
	input := decode(t, `{"b": "https://cdn/b.png", "a": "https://cdn/a.png", "c": "https://cdn/c.png"}`)
	for i := 0; i < 50; i++ {
		got, ok := FindMediaURL(input)
		require.True(t, ok)
		assert.Equal(t, "https://cdn/a.png", got)
	}
}

func TestFindMediaURL_DoesNotMutate(t *testing.T) {
	input := map[string]any{
		"list": []any{"noise", map[string]any{"url": " https://cdn/x.png "}},
	}
	_, _ = FindMediaURL(input)

	inner := input["list"].([]any)[1].(map[string]any)
	assert.Equal(t, " https://cdn/x.png ", inner["url"])
	assert.Len(t, input, 1)
}
