package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchemaReflectsYAMLFields(t *testing.T) {
	raw, err := JSONSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	defs, ok := schema["$defs"].(map[string]any)
	require.True(t, ok, "reflected schema carries struct definitions")

	root, ok := defs["Config"].(map[string]any)
	require.True(t, ok)
	props, ok := root["properties"].(map[string]any)
	require.True(t, ok)

	for _, field := range []string{"idp", "revocation", "pending", "timeout", "rate", "pagination", "llm", "toolServers"} {
		assert.Contains(t, props, field)
	}
}
