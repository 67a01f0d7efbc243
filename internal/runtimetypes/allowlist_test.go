package runtimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesEmbeddedAllowlist(t *testing.T) {
	l, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, l.Names())
}

func TestIsRuntimeProvidedKnownType(t *testing.T) {
	l, err := Load()
	require.NoError(t, err)
	require.True(t, l.IsRuntimeProvided("System.String"))
	require.True(t, l.IsRuntimeProvided("System.Object"))
}

func TestIsRuntimeProvidedUnknownType(t *testing.T) {
	l, err := Load()
	require.NoError(t, err)
	require.False(t, l.IsRuntimeProvided("MyApp.Widget"))
}

func TestNamesOrderIsStable(t *testing.T) {
	l1, err := Load()
	require.NoError(t, err)
	l2, err := Load()
	require.NoError(t, err)
	require.Equal(t, l1.Names(), l2.Names())
}
