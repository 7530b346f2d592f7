package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/stochvol/xerrors"
)

func TestParseOptionType(t *testing.T) {
	tests := []struct {
		in   string
		want OptionType
	}{
		{"call", OptionTypeCall},
		{" Put ", OptionTypePut},
		{"CALL", OptionTypeCall},
	}
	for _, tt := range tests {
		got, err := ParseOptionType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseOptionType("straddle")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidOptionType))
}

func TestOptionTypePayoff(t *testing.T) {
	assert.Equal(t, 10.0, OptionTypeCall.Payoff(110, 100))
	assert.Equal(t, 0.0, OptionTypeCall.Payoff(90, 100))
	assert.Equal(t, 10.0, OptionTypePut.Payoff(90, 100))
	assert.Equal(t, 0.0, OptionTypePut.Payoff(110, 100))
}
