package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBlock(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		block, ok := ExtractJSONBlock(`{"a": 1}`)
		require.True(t, ok)
		assert.Equal(t, `{"a": 1}`, block)
	})

	t.Run("markdown fence", func(t *testing.T) {
		block, ok := ExtractJSONBlock("```json\n{\"a\": 1}\n```")
		require.True(t, ok)
		assert.Equal(t, `{"a": 1}`, block)
	})

	t.Run("surrounding prose", func(t *testing.T) {
		block, ok := ExtractJSONBlock(`Here is the result: {"entities": []} hope that helps!`)
		require.True(t, ok)
		assert.Equal(t, `{"entities": []}`, block)
	})

	t.Run("nested objects span to last brace", func(t *testing.T) {
		block, ok := ExtractJSONBlock(`{"outer": {"inner": 1}}`)
		require.True(t, ok)
		assert.Equal(t, `{"outer": {"inner": 1}}`, block)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := ExtractJSONBlock("I could not produce any output")
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := ExtractJSONBlock("")
		assert.False(t, ok)
	})
}
