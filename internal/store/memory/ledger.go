package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"profitshare/internal/distribution"
)

// Ledger is an in-memory investment ledger for local runs and tests.
type Ledger struct {
	mu       sync.RWMutex
	holdings map[string][]distribution.Holding
}

func NewLedger() *Ledger {
	return &Ledger{holdings: make(map[string][]distribution.Holding)}
}

// SetHoldings replaces the completed holdings of a project.
func (l *Ledger) SetHoldings(projectID string, holdings ...distribution.Holding) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings[projectID] = append([]distribution.Holding(nil), holdings...)
}

func (l *Ledger) GetCompletedHoldings(ctx context.Context, projectID string) ([]distribution.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]distribution.Holding(nil), l.holdings[projectID]...), nil
}

type holdingRecord struct {
	UserID      string `json:"user_id"`
	TokenAmount int64  `json:"token_amount"`
}

// LoadFile seeds holdings from a JSON file mapping project ids to holder
// lists, e.g. {"solar-1": [{"user_id": "alice", "token_amount": 10}]}.
// Projects in the file replace any holdings already set for them.
func (l *Ledger) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read holdings file: %w", err)
	}
	var projects map[string][]holdingRecord
	if err := json.Unmarshal(raw, &projects); err != nil {
		return fmt.Errorf("decode holdings file %s: %w", path, err)
	}
	for projectID, records := range projects {
		if strings.TrimSpace(projectID) == "" {
			return fmt.Errorf("holdings file %s: empty project id", path)
		}
		holdings := make([]distribution.Holding, 0, len(records))
		for i, r := range records {
			if strings.TrimSpace(r.UserID) == "" || r.TokenAmount < 0 {
				return fmt.Errorf("holdings file %s: project %s entry %d: user_id is required and token_amount must not be negative", path, projectID, i)
			}
			holdings = append(holdings, distribution.Holding{UserID: r.UserID, TokenAmount: r.TokenAmount})
		}
		l.SetHoldings(projectID, holdings...)
	}
	return nil
}
