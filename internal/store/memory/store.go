package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"profitshare/internal/distribution"
)

// Store keeps distributions and claims in process memory. A single lock
// makes every conditional write atomic.
type Store struct {
	mu sync.RWMutex

	distributions map[string]distribution.ProfitDistribution
	periods       map[string]string
	claims        map[string]distribution.ProfitClaim
}

func NewStore() *Store {
	return &Store{
		distributions: make(map[string]distribution.ProfitDistribution),
		periods:       make(map[string]string),
		claims:        make(map[string]distribution.ProfitClaim),
	}
}

func (s *Store) ReservePeriod(_ context.Context, d distribution.ProfitDistribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.Period.Key(d.ProjectID)
	if _, exists := s.periods[key]; exists {
		return distribution.ErrDuplicateDistribution
	}
	if _, exists := s.distributions[d.ID]; exists {
		return distribution.ErrDuplicateDistribution
	}
	s.periods[key] = d.ID
	s.distributions[d.ID] = d
	return nil
}

func (s *Store) ReleasePeriod(_ context.Context, distributionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.distributions[distributionID]
	if !ok || d.Status != distribution.DistributionCalculated {
		return distribution.ErrReservationNotFound
	}
	for id, c := range s.claims {
		if c.DistributionID == distributionID {
			delete(s.claims, id)
		}
	}
	delete(s.periods, d.Period.Key(d.ProjectID))
	delete(s.distributions, distributionID)
	return nil
}

func (s *Store) MarkDistributed(_ context.Context, distributionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.distributions[distributionID]
	if !ok {
		return distribution.ErrDistributionNotFound
	}
	if d.Status != distribution.DistributionCalculated {
		return distribution.ErrReservationNotFound
	}
	d.Status = distribution.DistributionDistributed
	d.DistributedAt = &at
	s.distributions[distributionID] = d
	return nil
}

func (s *Store) AttachSettlementReference(_ context.Context, distributionID, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.distributions[distributionID]
	if !ok {
		return distribution.ErrDistributionNotFound
	}
	if d.SettlementReference != "" {
		return distribution.ErrSettlementReferenceSet
	}
	d.SettlementReference = reference
	s.distributions[distributionID] = d
	return nil
}

func (s *Store) GetDistribution(_ context.Context, distributionID string) (distribution.ProfitDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.distributions[strings.TrimSpace(distributionID)]
	if !ok {
		return distribution.ProfitDistribution{}, distribution.ErrDistributionNotFound
	}
	return d, nil
}

func (s *Store) ListDistributionsByProject(_ context.Context, projectID string, page distribution.PageRequest) (distribution.DistributionPage, error) {
	cursor, err := distribution.DecodeCursor(page.Cursor)
	if err != nil {
		return distribution.DistributionPage{}, err
	}
	page = page.Normalize()

	s.mu.RLock()
	items := make([]distribution.ProfitDistribution, 0)
	for _, d := range s.distributions {
		if d.ProjectID == projectID && cursor.After(d.CreatedAt, d.ID) {
			items = append(items, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return less(items[i].CreatedAt, items[i].ID, items[j].CreatedAt, items[j].ID)
	})
	out := distribution.DistributionPage{Items: items}
	if len(items) > page.Limit {
		out.Items = items[:page.Limit]
		last := out.Items[page.Limit-1]
		out.NextCursor = distribution.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *Store) ListDistributionsByStatus(_ context.Context, status distribution.DistributionStatus) ([]distribution.ProfitDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]distribution.ProfitDistribution, 0)
	for _, d := range s.distributions {
		if d.Status == status {
			items = append(items, d)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return less(items[i].CreatedAt, items[i].ID, items[j].CreatedAt, items[j].ID)
	})
	return items, nil
}

func (s *Store) UpsertClaim(_ context.Context, c distribution.ProfitClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return distribution.ErrInvalidInput
	}
	if _, exists := s.claims[c.ID]; exists {
		return nil
	}
	if c.Version == 0 {
		c.Version = 1
	}
	if c.State == nil {
		c.State = distribution.PendingState{}
	}
	s.claims[c.ID] = c
	return nil
}

func (s *Store) GetClaim(_ context.Context, claimID string) (distribution.ProfitClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[strings.TrimSpace(claimID)]
	if !ok {
		return distribution.ProfitClaim{}, distribution.ErrClaimNotFound
	}
	return c, nil
}

func (s *Store) FindClaimByPaymentID(_ context.Context, paymentID string) (distribution.ProfitClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.claims {
		if p := c.PaymentDetails(); p != nil && p.PaymentID != "" && p.PaymentID == paymentID {
			return c, nil
		}
	}
	return distribution.ProfitClaim{}, distribution.ErrClaimNotFound
}

func (s *Store) ListClaimsByUser(_ context.Context, userID string, page distribution.PageRequest) (distribution.ClaimPage, error) {
	cursor, err := distribution.DecodeCursor(page.Cursor)
	if err != nil {
		return distribution.ClaimPage{}, err
	}
	page = page.Normalize()

	s.mu.RLock()
	items := make([]distribution.ProfitClaim, 0)
	for _, c := range s.claims {
		if c.UserID == userID && cursor.After(c.CreatedAt, c.ID) {
			items = append(items, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return less(items[i].CreatedAt, items[i].ID, items[j].CreatedAt, items[j].ID)
	})
	out := distribution.ClaimPage{Items: items}
	if len(items) > page.Limit {
		out.Items = items[:page.Limit]
		last := out.Items[page.Limit-1]
		out.NextCursor = distribution.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *Store) ListClaimsByDistribution(_ context.Context, distributionID string) ([]distribution.ProfitClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]distribution.ProfitClaim, 0)
	for _, c := range s.claims {
		if c.DistributionID == distributionID {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) SwapClaim(_ context.Context, expected distribution.ClaimStatus, expectedVersion int64, next distribution.ProfitClaim) (distribution.ProfitClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.claims[next.ID]
	if !ok {
		return distribution.ProfitClaim{}, distribution.ErrClaimNotFound
	}
	if current.Status() != expected || current.Version != expectedVersion {
		return distribution.ProfitClaim{}, distribution.ErrStaleClaim
	}
	// Identity and amounts are fixed at creation.
	updated := current
	updated.State = next.State
	updated.Version = current.Version + 1
	s.claims[next.ID] = updated
	return updated, nil
}

func less(at time.Time, id string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return id < bid
}
