package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize([]byte("1234"), 4))
	assert.ErrorIs(t, ValidateSize([]byte("12345"), 4), ErrInvalidInput)
}

func TestValidateJSONDepth(t *testing.T) {
	nested := map[string]any{"a": map[string]any{"b": []any{map[string]any{"c": 1}}}}

	assert.NoError(t, ValidateJSONDepth(nested, 4))
	assert.ErrorIs(t, ValidateJSONDepth(nested, 3), ErrInvalidInput)
}

func TestValidateContext(t *testing.T) {
	assert.NoError(t, ValidateContext(nil))
	assert.NoError(t, ValidateContext(map[string]any{"units": "metric", "n": 3}))

	big := map[string]any{"blob": strings.Repeat("x", MaxContextSize)}
	assert.ErrorIs(t, ValidateContext(big), ErrInvalidInput)

	deep := map[string]any{}
	cur := deep
	for i := 0; i < MaxContextDepth+1; i++ {
		next := map[string]any{}
		cur["k"] = next
		cur = next
	}
	assert.ErrorIs(t, ValidateContext(deep), ErrInvalidInput)
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		required bool
		wantErr  bool
	}{
		{name: "ok", value: "hello", required: true},
		{name: "optional empty", value: "", required: false},
		{name: "required blank", value: "  ", required: true, wantErr: true},
		{name: "too long", value: strings.Repeat("é", 11), required: true, wantErr: true},
		{name: "exact length in runes", value: strings.Repeat("é", 10), required: true},
		{name: "null byte", value: "a\x00b", required: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString(tt.value, "field", 10, tt.required)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("llm", "name"))
	assert.NoError(t, ValidateID("llm.eval-2_b", "name"))
	assert.ErrorIs(t, ValidateID("", "name"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateID("bad name", "name"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateID(strings.Repeat("a", MaxIDLength+1), "name"), ErrInvalidInput)
}
