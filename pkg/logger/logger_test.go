package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	l, err := Init("debug", "console")
	require.NoError(t, err)
	require.Same(t, l, L())

	_, err = Init("loud", "json")
	require.Error(t, err)

	_, err = Init("info", "xml")
	require.Error(t, err)
}
