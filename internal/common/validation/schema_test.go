package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "job_title": {"type": "string", "minLength": 1},
    "category": {"type": "string", "enum": ["General", "Tech"]}
  },
  "required": ["job_title"],
  "additionalProperties": false
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name   string
		input  map[string]interface{}
		valid  bool
		fields []string
	}{
		{name: "valid", input: map[string]interface{}{"job_title": "Nurse", "category": "Tech"}, valid: true},
		{name: "missing required", input: map[string]interface{}{"category": "Tech"}, fields: []string{"job_title"}},
		{name: "bad enum", input: map[string]interface{}{"job_title": "Nurse", "category": "Space"}, fields: []string{"category"}},
		{name: "extra field", input: map[string]interface{}{"job_title": "Nurse", "salary": 1}, fields: []string{"salary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Validate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)

			var fields []string
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
				assert.NotEmpty(t, e.Code)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestValidateInput(t *testing.T) {
	result, err := ValidateInput(map[string]interface{}{}, testSchema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "job_title: job_title is required", result.Error())
}
