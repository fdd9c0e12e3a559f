package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = []byte(`{
  "type": "object",
  "required": ["category", "latitude"],
  "properties": {
    "category": {"type": "string", "enum": ["hotel", "restaurant"]},
    "latitude": {"type": "number", "minimum": -90, "maximum": 90},
    "viewport": {
      "type": "object",
      "required": ["low"],
      "properties": {"low": {"type": "object"}}
    }
  }
}`)

func TestSchema_ValidateInput(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name       string
		input      map[string]interface{}
		valid      bool
		errorField string
	}{
		{
			name:  "valid",
			input: map[string]interface{}{"category": "hotel", "latitude": 48.85},
			valid: true,
		},
		{
			name:       "missing latitude",
			input:      map[string]interface{}{"category": "hotel"},
			errorField: "latitude",
		},
		{
			name:       "bad enum",
			input:      map[string]interface{}{"category": "bar", "latitude": 1.0},
			errorField: "category",
		},
		{
			name:       "out of range",
			input:      map[string]interface{}{"category": "hotel", "latitude": 120.0},
			errorField: "latitude",
		},
		{
			name: "nested",
			input: map[string]interface{}{
				"category": "hotel", "latitude": 1.0,
				"viewport": map[string]interface{}{},
			},
			errorField: "viewport.low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.ValidateInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.NoError(t, result.Err())
				return
			}
			assert.NotEmpty(t, result.GetErrorsForField(tt.errorField), result.GetErrorMessages())
			assert.Error(t, result.Err())
		})
	}
}

func TestSchema_ValidateBytes(t *testing.T) {
	s := MustCompile(testSchema)

	result, err := s.ValidateBytes([]byte(`{"category":"restaurant","latitude":10}`))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	_, err = s.ValidateBytes([]byte(`{not json`))
	assert.Error(t, err)
}

func TestCompile_RejectsBadSchema(t *testing.T) {
	_, err := Compile([]byte(`{"type": 12}`))
	assert.Error(t, err)
}
