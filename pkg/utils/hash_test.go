package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256Hex(t *testing.T) {
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(nil))
	require.Len(t, SHA256Hex([]byte(`{"id":"p1"}`)), 64)
}
