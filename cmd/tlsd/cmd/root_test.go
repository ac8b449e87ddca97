package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annetutil/tlsengine/pkg/handshake"
)

func TestParseClientAuth(t *testing.T) {
	cases := map[string]handshake.ClientAuthPolicy{
		"":         handshake.VerifyNone,
		"none":     handshake.VerifyNone,
		"optional": handshake.VerifyOptional,
		"required": handshake.VerifyRequired,
	}
	for in, want := range cases {
		got, err := parseClientAuth(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseClientAuth("bogus")
	assert.Error(t, err)
}
