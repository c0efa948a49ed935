package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarveObjectPlain(t *testing.T) {
	out, err := CarveObject(`{"name": "Marina Heights"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"name": "Marina Heights"}`, out)
}

func TestCarveObjectStripsFences(t *testing.T) {
	content := "Here is the result:\n```json\n{\"a\": 1}\n```\nLet me know if you need more."
	out, err := CarveObject(content)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestCarveObjectIgnoresBracesInStrings(t *testing.T) {
	content := `{"desc": "a {nested} brace and a \" quote", "n": 2}`
	out, err := CarveObject(content)
	require.NoError(t, err)
	assert.Equal(t, content, out)
}

func TestCarveObjectNested(t *testing.T) {
	content := `preamble {"outer": {"inner": [1, 2]}} trailing commentary`
	out, err := CarveObject(content)
	require.NoError(t, err)
	assert.Equal(t, `{"outer": {"inner": [1, 2]}}`, out)
}

func TestCarveObjectErrors(t *testing.T) {
	_, err := CarveObject("no json here")
	assert.Error(t, err)

	_, err = CarveObject(`{"unterminated": true`)
	assert.Error(t, err)
}

func TestCarveValuePicksEarlier(t *testing.T) {
	out, err := CarveValue(`[1, 2] and later {"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", out)

	out, err = CarveValue(`{"a": [1]} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": [1]}`, out)
}
