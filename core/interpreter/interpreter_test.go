package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKnownTypes(t *testing.T) {
	for _, expected := range All() {
		parsed, err := Parse(string(expected))
		require.NoError(t, err)
		assert.Equal(t, expected, parsed)
		assert.True(t, parsed.Known())
	}
	parsed, err := Parse(" Bash\n")
	require.NoError(t, err)
	assert.Equal(t, Bash, parsed)
}

func TestParseRejectsUnknownAndCaseVariants(t *testing.T) {
	for _, value := range []string{"", "python", "Ruby", "PYTHON"} {
		_, err := Parse(value)
		assert.Error(t, err, value)
	}
}

func TestBinary(t *testing.T) {
	tests := map[Type]string{
		Python: "python3",
		Shell:  "sh",
		Bash:   "bash",
		Fish:   "fish",
		Zsh:    "zsh",
	}
	for typ, want := range tests {
		got, ok := typ.Binary()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := Type("Perl").Binary()
	assert.False(t, ok)
	assert.False(t, Type("Perl").Known())
}
