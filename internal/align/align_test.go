package align

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUp(t *testing.T) {
	require.EqualValues(t, 4, Up(2, 4))
	require.EqualValues(t, 4, Up(3, 4))
	require.EqualValues(t, 8, Up(5, 4))
	require.EqualValues(t, 0, Up(0, 4))
	require.EqualValues(t, 4, Up(4, 4))
}
