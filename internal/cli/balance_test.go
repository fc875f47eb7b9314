package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCommandMissingDatabase(t *testing.T) {
	cmd := NewBalanceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", "/nonexistent/node.db", "--currency", "gold"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestBalanceCommandAddress(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewBalanceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--currency", "gold", "--address", "alice"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Balance of alice in gold: 750")
	assert.Contains(t, output, "Total supply of gold: 1,000")
}

func TestBalanceCommandSupplyOnly(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewBalanceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--currency", "gold"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "Balance of")
	assert.Contains(t, output, "Total supply of gold: 1,000")
}

func TestBalanceCommandJSON(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewBalanceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--currency", "gold", "--address", "bob"})

	err := cmd.Execute()
	require.NoError(t, err)

	var result BalanceResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "gold", result.CurrencyID)
	assert.Equal(t, "bob", result.Address)
	assert.Equal(t, int64(250), result.Balance)
	assert.Equal(t, int64(1000), result.TotalSupply)
}

// Rejected operations are audit records, not state. The rebuild must skip
// them even though they sit in the same database.
func TestBalanceCommandIgnoresRejections(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewBalanceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--currency", "gold", "--address", "alice"})

	err := cmd.Execute()
	require.NoError(t, err)

	var result BalanceResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	// The failed 10000 transfer from bob must not have moved anything.
	assert.Equal(t, int64(750), result.Balance)
}

func TestBalanceCommandUnknownCurrency(t *testing.T) {
	dbPath := seedDatabase(t)

	buf := &bytes.Buffer{}
	cmd := NewBalanceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--currency", "silver", "--address", "alice"})

	err := cmd.Execute()
	require.NoError(t, err)

	var result BalanceResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, int64(0), result.Balance)
	assert.Equal(t, int64(0), result.TotalSupply)
}
