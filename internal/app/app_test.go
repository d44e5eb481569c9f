package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitshare/internal/distribution"
	"profitshare/pkg/config"
	"profitshare/pkg/money"
)

func memorySettings(t *testing.T) config.Settings {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	var s config.Settings
	require.NoError(t, config.ParseEnv(&s))
	require.NoError(t, s.Validate())
	return s
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBuildMemorySeedsHoldings(t *testing.T) {
	s := memorySettings(t)
	s.MemoryHoldingsFile = filepath.Join(t.TempDir(), "holdings.json")
	require.NoError(t, os.WriteFile(s.MemoryHoldingsFile,
		[]byte(`{"solar-1": [{"user_id": "alice", "token_amount": 10}, {"user_id": "bob", "token_amount": 90}]}`), 0o600))

	a, err := Build(context.Background(), s, quietLogger(), Options{})
	require.NoError(t, err)
	defer a.Close()

	total, err := money.ParseAmount("1000.00")
	require.NoError(t, err)
	d, err := a.Engine.CreateDistribution(context.Background(), distribution.CreateDistributionInput{
		ProjectID: "solar-1",
		Period: distribution.Period{
			StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
			Quarter:   1,
			Year:      2024,
		},
		TotalProfit: total,
		AdminID:     "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.HolderCount)
	assert.Equal(t, int64(100), d.TotalCirculatingTokens)
}

func TestBuildMemoryRejectsUnreadableHoldings(t *testing.T) {
	s := memorySettings(t)
	s.MemoryHoldingsFile = filepath.Join(t.TempDir(), "absent.json")

	_, err := Build(context.Background(), s, quietLogger(), Options{})
	assert.Error(t, err)
}
