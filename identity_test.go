package wsrelay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIdentity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short ascii", input: "abc", want: "96354"},
		{name: "word", input: "hello", want: "99162322"},
		{name: "negative after overflow", input: "aaaaaa", want: "-1425372064"},
		{name: "surrogate pair hashes per code unit", input: "\U0001F600", want: "1772899"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HashIdentity(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashIdentity_Deterministic(t *testing.T) {
	first, err := HashIdentity("some-user")
	require.NoError(t, err)
	second, err := HashIdentity("some-user")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHashIdentity_EmptyRejected(t *testing.T) {
	_, err := HashIdentity("")
	assert.ErrorIs(t, err, ErrEmptyIdentity)
}
