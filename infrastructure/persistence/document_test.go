package persistence

import (
	"testing"

	"gallery-backend/domain/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDocument(t *testing.T) {
	t.Run("Should indent with two spaces and keep ampersands", func(t *testing.T) {
		data, err := EncodeDocument(template.Collection{{ID: "1", Title: "Leads & <CRM>"}})
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n  {\n    \"id\": \"1\"")
		assert.Contains(t, string(data), `"Leads & <CRM>"`)
	})

	t.Run("Should encode nil as an empty array", func(t *testing.T) {
		data, err := EncodeDocument(nil)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	})
}

func TestDecodeDocument(t *testing.T) {
	t.Run("Should treat blank input as empty", func(t *testing.T) {
		got, err := DecodeDocument([]byte("  \n"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Should keep legacy catalog fields", func(t *testing.T) {
		got, err := DecodeDocument([]byte(`[{"id":"1","relatedTemplates":["2"],"setupInstructions":["Connect Slack"]}]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, []string{"2"}, got[0].RelatedTemplates)
		assert.Equal(t, []string{"Connect Slack"}, got[0].SetupInstructions)
	})

	t.Run("Should fail on malformed JSON", func(t *testing.T) {
		_, err := DecodeDocument([]byte(`{`))
		assert.Error(t, err)
	})
}
