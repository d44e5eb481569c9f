package distribution

import (
	"errors"
	"fmt"
	"sort"

	"profitshare/pkg/money"
)

// profitPerTokenPlaces is the number of fraction digits of a minor unit kept
// in the informational per-token figure.
const profitPerTokenPlaces = 6

// Allocation is the result of splitting a gross profit between the platform
// and the holders in a snapshot.
type Allocation struct {
	TotalProfit            money.Amount
	FeeRate                money.Rate
	PlatformFee            money.Amount
	DistributedProfit      money.Amount
	ProfitPerToken         string
	TotalCirculatingTokens int64
	Shares                 []Share
}

// Share is one holder's portion of the distributed profit.
type Share struct {
	UserID          string
	TokenAmount     int64
	ClaimableAmount money.Amount
}

// Allocate computes the platform fee, the distributable pool and each holder's
// claimable amount. Holdings must already be aggregated per user and sorted.
// The claimable amounts always sum to DistributedProfit.
func Allocate(totalProfit money.Amount, feeRate money.Rate, holdings []Holding) (Allocation, error) {
	if totalProfit <= 0 {
		return Allocation{}, fmt.Errorf("%w: total profit must be positive", ErrInvalidInput)
	}
	if !feeRate.Valid() {
		return Allocation{}, fmt.Errorf("%w: fee rate %d bps out of range", ErrInvalidInput, feeRate)
	}

	var circulating int64
	weights := make([]int64, len(holdings))
	for i, h := range holdings {
		if h.TokenAmount <= 0 {
			return Allocation{}, fmt.Errorf("%w: holding for %s is not positive", ErrInvalidInput, h.UserID)
		}
		circulating += h.TokenAmount
		if circulating < 0 {
			return Allocation{}, errors.New("allocate: circulating supply overflows int64")
		}
		weights[i] = h.TokenAmount
	}
	if circulating == 0 {
		return Allocation{}, ErrNoCirculatingTokens
	}

	fee := feeRate.Apply(totalProfit)
	distributed := totalProfit - fee

	amounts, err := money.Apportion(distributed, weights)
	if err != nil {
		return Allocation{}, fmt.Errorf("allocate: %w", err)
	}
	perToken, err := money.PerUnit(distributed, circulating, profitPerTokenPlaces)
	if err != nil {
		return Allocation{}, fmt.Errorf("allocate: %w", err)
	}

	shares := make([]Share, len(holdings))
	for i, h := range holdings {
		shares[i] = Share{UserID: h.UserID, TokenAmount: h.TokenAmount, ClaimableAmount: amounts[i]}
	}
	return Allocation{
		TotalProfit:            totalProfit,
		FeeRate:                feeRate,
		PlatformFee:            fee,
		DistributedProfit:      distributed,
		ProfitPerToken:         perToken.StringFixed(money.MinorUnitDigits + profitPerTokenPlaces),
		TotalCirculatingTokens: circulating,
		Shares:                 shares,
	}, nil
}

// aggregateHoldings merges multiple ledger rows for the same user, drops
// non-positive positions and orders the result by user id.
func aggregateHoldings(rows []Holding) []Holding {
	byUser := make(map[string]int64, len(rows))
	for _, h := range rows {
		if h.UserID == "" {
			continue
		}
		byUser[h.UserID] += h.TokenAmount
	}
	out := make([]Holding, 0, len(byUser))
	for userID, amount := range byUser {
		if amount > 0 {
			out = append(out, Holding{UserID: userID, TokenAmount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
