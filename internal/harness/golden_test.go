package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden traces pin the exact projected record sequence for each scenario.
// Regenerate after intentional trace changes with:
//
//	go test ./internal/harness -update

func runGolden(t *testing.T, file string) {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", file))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.OK(), "failures: %v", result.Failures)
}

func TestGolden_GoldStandard(t *testing.T) {
	runGolden(t, "gold_standard.yaml")
}

func TestGolden_PermissionRejection(t *testing.T) {
	runGolden(t, "permission_rejection.yaml")
}
