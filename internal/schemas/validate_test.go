package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-live/internal/types"
)

func TestKeys_CoverEverySettingsRow(t *testing.T) {
	keys, err := Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, types.SettingsKeys, keys)
}

func TestValidateSettings_DefaultsAreValid(t *testing.T) {
	for key, value := range types.DefaultSettings() {
		data, err := json.Marshal(value)
		require.NoError(t, err)
		assert.NoError(t, ValidateSettings(key, data), key)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"bad orientation", types.SettingsDisplay, `{"results_hidden":false,"orientation":"diagonal"}`, "orientation"},
		{"missing field", types.SettingsSignup, `{}`, "(root)"},
		{"wrong type", types.SettingsSignup, `{"open":"yes"}`, "open"},
		{"extra field", types.SettingsSignup, `{"open":true,"admin":true}`, "(root)"},
		{"slot too long", types.SettingsScheduling, `{"enabled":true,"slot_minutes":500}`, "slot_minutes"},
		{"zero duration", types.SettingsTimer, `{"running":false,"duration_seconds":0}`, "duration_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(tt.key, []byte(tt.value))
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.NotEmpty(t, vErr.Errors)
			assert.Equal(t, tt.field, vErr.Errors[0].Field)
		})
	}
}

func TestValidateSettings_NotJSON(t *testing.T) {
	err := ValidateSettings(types.SettingsSignup, []byte(`{not json`))
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestValidateSettings_UnknownKey(t *testing.T) {
	err := ValidateSettings("theme", []byte(`{}`))
	var unknown *UnknownKeyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "theme", unknown.Key)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`

	assert.NoError(t, ValidateJSONString(schema, `{"n":1}`))

	err := ValidateJSONString(schema, `{"n":"x"}`)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "n:")

	err = ValidateJSONString(`{"type": 12}`, `{}`)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}
