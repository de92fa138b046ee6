package planner

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	inner := `{"days": [{"day": 1}], "note": "a } inside"}`

	cases := map[string]string{
		"Fenced":        "```json\n" + inner + "\n```",
		"FencedNoTag":   "```\n" + inner + "\n```",
		"FencedUpper":   "```JSON\n" + inner + "\n```",
		"Prose":         "Sure! Here is your plan: " + inner + " Let me know if you need changes.",
		"Bare":          inner,
		"PaddedBare":    "\n\n  " + inner + "  \n",
		"FenceAndProse": "Here you go:\n```json\n" + inner + "\n```\nEnjoy!",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, inner, ExtractJSON(input))
		})
	}

	t.Run("NoBraces", func(t *testing.T) {
		assert.Equal(t, "no json here", ExtractJSON("  no json here \n"))
	})

	t.Run("ReversedBraces", func(t *testing.T) {
		assert.Equal(t, "} nope {", ExtractJSON("} nope {"))
	})
}

func TestSanitizeJSON(t *testing.T) {
	broken := "{\n  \"notes\": \"line one\nline two\",\n  \"tab\": \"a\tb\"\n}"

	var v map[string]string
	require.Error(t, json.Unmarshal([]byte(broken), &v), "raw newline in a string must not parse")

	fixed := SanitizeJSON(broken)
	require.NoError(t, json.Unmarshal([]byte(fixed), &v))
	assert.Equal(t, "line one\nline two", v["notes"])
	assert.Equal(t, "a\tb", v["tab"])

	// Structural newlines stay where they were.
	assert.Equal(t, strings.Count(broken, "\n")-1, strings.Count(fixed, "\n"))
	assert.True(t, strings.HasPrefix(fixed, "{\n  \"notes\""))
}

func TestSanitizeJSON_RespectsEscapes(t *testing.T) {
	in := `{"q": "say \"hi\"\\", "n": "x` + "\n" + `y"}`
	out := SanitizeJSON(in)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, `say "hi"\`, v["q"])
	assert.Equal(t, "x\ny", v["n"])
}

func TestSanitizeJSON_OtherControlChars(t *testing.T) {
	out := SanitizeJSON("{\"a\": \"bell\x07\"}")
	assert.Equal(t, `{"a": "bell\u0007"}`, out)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, `a\nb`, Preview("a\nb"))

	long := strings.Repeat("é", 700)
	assert.Len(t, []rune(Preview(long)), 600)
}
