package debug

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnabledGlobalFlag(t *testing.T) {
	t.Setenv("IRIS_DEBUG", "1")
	Reset()
	require.True(t, Enabled(SectionArbiter))
	require.True(t, Enabled(SectionQueue))
}

func TestEnabledPerSection(t *testing.T) {
	os.Unsetenv("IRIS_DEBUG")
	t.Setenv("IRIS_DEBUG_PORT", "1")
	Reset()
	require.True(t, Enabled(SectionPort))
	require.False(t, Enabled(SectionArbiter))
}

func TestDisabledByDefault(t *testing.T) {
	os.Unsetenv("IRIS_DEBUG")
	os.Unsetenv("IRIS_DEBUG_MESSAGE")
	Reset()
	require.False(t, Enabled(SectionMessage))
}
