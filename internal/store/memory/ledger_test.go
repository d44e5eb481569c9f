package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitshare/internal/distribution"
)

func writeHoldings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holdings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLedgerLoadFile(t *testing.T) {
	l := NewLedger()
	l.SetHoldings("wind-1", distribution.Holding{UserID: "carol", TokenAmount: 5})

	path := writeHoldings(t, `{
		"solar-1": [
			{"user_id": "alice", "token_amount": 10},
			{"user_id": "bob", "token_amount": 90}
		]
	}`)
	require.NoError(t, l.LoadFile(path))

	got, err := l.GetCompletedHoldings(context.Background(), "solar-1")
	require.NoError(t, err)
	assert.Equal(t, []distribution.Holding{
		{UserID: "alice", TokenAmount: 10},
		{UserID: "bob", TokenAmount: 90},
	}, got)

	untouched, err := l.GetCompletedHoldings(context.Background(), "wind-1")
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}

func TestLedgerLoadFileRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Not JSON", body: `solar-1: alice`},
		{name: "Missing user", body: `{"solar-1": [{"token_amount": 10}]}`},
		{name: "Negative amount", body: `{"solar-1": [{"user_id": "alice", "token_amount": -1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewLedger().LoadFile(writeHoldings(t, tt.body)))
		})
	}

	t.Run("Missing file", func(t *testing.T) {
		assert.Error(t, NewLedger().LoadFile(filepath.Join(t.TempDir(), "absent.json")))
	})
}
