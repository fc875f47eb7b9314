package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullDefinitions(t *testing.T) {
	defs, err := Parse(`
currencies: [
	{id: "gold", name: "Gold", symbol: "GLD", decimals: 2, maxSupply: 1000000},
	{id: "dust"},
]
resources: [
	{id: "ticket", name: "Event Ticket", description: "Admission for one", maxSupply: 100},
]
`)
	require.NoError(t, err)

	require.Len(t, defs.Currencies, 2)
	assert.Equal(t, "Gold", defs.Currencies[0].Name)
	assert.Equal(t, int64(1_000_000), defs.Currencies[0].MaxSupply)

	// Defaults: name falls back to id, supply is unlimited.
	assert.Equal(t, "dust", defs.Currencies[1].Name)
	assert.Zero(t, defs.Currencies[1].MaxSupply)
	assert.Zero(t, defs.Currencies[1].Decimals)

	require.Len(t, defs.Resources, 1)
	assert.Equal(t, int64(100), defs.Resources[0].MaxSupply)
}

func TestParse_EmptyDocument(t *testing.T) {
	defs, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, defs.Currencies)
	assert.Empty(t, defs.Resources)
}

func TestParse_RejectsNegativeSupply(t *testing.T) {
	_, err := Parse(`currencies: [{id: "gold", maxSupply: -1}]`)
	require.Error(t, err)
}

func TestParse_RejectsMissingID(t *testing.T) {
	_, err := Parse(`currencies: [{name: "Gold"}]`)
	require.Error(t, err)
}

func TestParse_RejectsUnknownDecimals(t *testing.T) {
	_, err := Parse(`currencies: [{id: "gold", decimals: 40}]`)
	require.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definitions.cue")
	require.NoError(t, os.WriteFile(path, []byte(`currencies: [{id: "gold", maxSupply: 500}]`), 0o644))

	defs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, defs.Currencies, 1)

	configs := defs.CurrencyConfigs()
	require.Len(t, configs, 1)
	assert.Equal(t, "gold", configs[0].ID)
	assert.Equal(t, int64(500), configs[0].MaxSupply)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
}
