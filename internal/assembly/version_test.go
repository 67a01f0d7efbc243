package assembly

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionSatisfiesNewerMajor(t *testing.T) {
	have := Version{Major: 2, Minor: 0, Build: 0, Revision: 0}
	want := Version{Major: 1, Minor: 5, Build: 0, Revision: 0}
	require.True(t, have.Satisfies(want))
}

func TestVersionSatisfiesOlderMajorFails(t *testing.T) {
	have := Version{Major: 1, Minor: 0, Build: 0, Revision: 0}
	want := Version{Major: 2, Minor: 0, Build: 0, Revision: 0}
	require.False(t, have.Satisfies(want))
}

func TestVersionSatisfiesRevisionTieBreak(t *testing.T) {
	have := Version{Major: 1, Minor: 0, Build: 0, Revision: 3}
	want := Version{Major: 1, Minor: 0, Build: 0, Revision: 5}
	require.False(t, have.Satisfies(want))

	have.Revision = 5
	require.True(t, have.Satisfies(want))
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 4, Minor: 0, Build: 30319, Revision: 1}
	require.Equal(t, "4.0.30319.1", v.String())
}
