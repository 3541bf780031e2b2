package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/costing/internal/testing/guard"
)

func TestInTestModeFollowsEnvironment(t *testing.T) {
	require.True(t, InTestMode(), "guard import should enable test mode")

	t.Setenv(guard.Env, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(guard.Env, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}
