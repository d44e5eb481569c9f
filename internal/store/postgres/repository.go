package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profitshare/internal/distribution"
	"profitshare/internal/models"
	"profitshare/pkg/secure"
)

// Repository stores distributions and claims in PostgreSQL. Every state change
// is a single conditional statement so concurrent callers cannot interleave a
// read and a write.
type Repository struct {
	db     *gorm.DB
	logger logrus.FieldLogger
	cipher *secure.FieldCipher
}

// Option customises a Repository.
type Option func(*Repository)

// WithFieldCipher encrypts claim bank accounts at rest.
func WithFieldCipher(c *secure.FieldCipher) Option {
	return func(r *Repository) { r.cipher = c }
}

func NewRepository(db *gorm.DB, logger logrus.FieldLogger, opts ...Option) *Repository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Repository{db: db, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) ReservePeriod(ctx context.Context, d distribution.ProfitDistribution) error {
	row := distributionRow(d)
	create := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return distribution.ErrDuplicateDistribution
		}
		return r.logError("reserve_period_failed", create.Error, logrus.Fields{
			"distribution_id": d.ID,
			"project_id":      d.ProjectID,
		})
	}
	if create.RowsAffected == 0 {
		return distribution.ErrDuplicateDistribution
	}
	return nil
}

func (r *Repository) ReleasePeriod(ctx context.Context, distributionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", distributionID, string(distribution.DistributionCalculated)).
			Delete(&models.ProfitDistribution{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return distribution.ErrReservationNotFound
		}
		return tx.Where("distribution_id = ?", distributionID).Delete(&models.ProfitClaim{}).Error
	})
	if err != nil && !errors.Is(err, distribution.ErrReservationNotFound) {
		return r.logError("release_period_failed", err, logrus.Fields{"distribution_id": distributionID})
	}
	return err
}

func (r *Repository) MarkDistributed(ctx context.Context, distributionID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ProfitDistribution{}).
		Where("id = ? AND status = ?", distributionID, string(distribution.DistributionCalculated)).
		Updates(map[string]any{
			"status":         string(distribution.DistributionDistributed),
			"distributed_at": at.UTC(),
		})
	if res.Error != nil {
		return r.logError("mark_distributed_failed", res.Error, logrus.Fields{"distribution_id": distributionID})
	}
	if res.RowsAffected == 0 {
		return distribution.ErrReservationNotFound
	}
	return nil
}

func (r *Repository) AttachSettlementReference(ctx context.Context, distributionID, reference string) error {
	res := r.db.WithContext(ctx).Model(&models.ProfitDistribution{}).
		Where("id = ? AND (settlement_reference IS NULL OR settlement_reference = '')", distributionID).
		Update("settlement_reference", reference)
	if res.Error != nil {
		return r.logError("attach_settlement_reference_failed", res.Error, logrus.Fields{"distribution_id": distributionID})
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetDistribution(ctx, distributionID); err != nil {
			return err
		}
		return distribution.ErrSettlementReferenceSet
	}
	return nil
}

func (r *Repository) GetDistribution(ctx context.Context, distributionID string) (distribution.ProfitDistribution, error) {
	var row models.ProfitDistribution
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(distributionID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return distribution.ProfitDistribution{}, distribution.ErrDistributionNotFound
	}
	if err != nil {
		return distribution.ProfitDistribution{}, r.logError("get_distribution_failed", err, logrus.Fields{"distribution_id": distributionID})
	}
	return distributionFromRow(row), nil
}

func (r *Repository) ListDistributionsByProject(ctx context.Context, projectID string, page distribution.PageRequest) (distribution.DistributionPage, error) {
	cursor, err := distribution.DecodeCursor(page.Cursor)
	if err != nil {
		return distribution.DistributionPage{}, err
	}
	page = page.Normalize()

	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ProfitDistribution
	if err := query.Order("created_at ASC, id ASC").Limit(page.Limit + 1).Find(&rows).Error; err != nil {
		return distribution.DistributionPage{}, r.logError("list_distributions_failed", err, logrus.Fields{"project_id": projectID})
	}

	out := distribution.DistributionPage{Items: make([]distribution.ProfitDistribution, 0, len(rows))}
	for _, row := range rows {
		out.Items = append(out.Items, distributionFromRow(row))
	}
	if len(out.Items) > page.Limit {
		out.Items = out.Items[:page.Limit]
		last := out.Items[page.Limit-1]
		out.NextCursor = distribution.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (r *Repository) ListDistributionsByStatus(ctx context.Context, status distribution.DistributionStatus) ([]distribution.ProfitDistribution, error) {
	var rows []models.ProfitDistribution
	if err := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("list_distributions_by_status_failed", err, logrus.Fields{"status": status})
	}
	items := make([]distribution.ProfitDistribution, 0, len(rows))
	for _, row := range rows {
		items = append(items, distributionFromRow(row))
	}
	return items, nil
}

func (r *Repository) UpsertClaim(ctx context.Context, c distribution.ProfitClaim) error {
	row := claimRow(c)
	if row.Version == 0 {
		row.Version = 1
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("upsert_claim_failed", create.Error, logrus.Fields{
			"claim_id":        c.ID,
			"distribution_id": c.DistributionID,
		})
	}
	return nil
}

func (r *Repository) GetClaim(ctx context.Context, claimID string) (distribution.ProfitClaim, error) {
	return r.findClaim(ctx, "get_claim_failed", "id = ?", strings.TrimSpace(claimID))
}

func (r *Repository) FindClaimByPaymentID(ctx context.Context, paymentID string) (distribution.ProfitClaim, error) {
	if strings.TrimSpace(paymentID) == "" {
		return distribution.ProfitClaim{}, distribution.ErrClaimNotFound
	}
	return r.findClaim(ctx, "find_claim_by_payment_failed", "payment_id = ?", strings.TrimSpace(paymentID))
}

func (r *Repository) findClaim(ctx context.Context, event string, where string, arg any) (distribution.ProfitClaim, error) {
	var row models.ProfitClaim
	err := r.db.WithContext(ctx).Where(where, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return distribution.ProfitClaim{}, distribution.ErrClaimNotFound
	}
	if err != nil {
		return distribution.ProfitClaim{}, r.logError(event, err, logrus.Fields{"key": arg})
	}
	if err := r.open(&row); err != nil {
		return distribution.ProfitClaim{}, err
	}
	return claimFromRow(row)
}

func (r *Repository) ListClaimsByUser(ctx context.Context, userID string, page distribution.PageRequest) (distribution.ClaimPage, error) {
	cursor, err := distribution.DecodeCursor(page.Cursor)
	if err != nil {
		return distribution.ClaimPage{}, err
	}
	page = page.Normalize()

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ProfitClaim
	if err := query.Order("created_at ASC, id ASC").Limit(page.Limit + 1).Find(&rows).Error; err != nil {
		return distribution.ClaimPage{}, r.logError("list_claims_by_user_failed", err, logrus.Fields{"user_id": userID})
	}
	items, err := r.claimsFromRows(rows)
	if err != nil {
		return distribution.ClaimPage{}, err
	}

	out := distribution.ClaimPage{Items: items}
	if len(items) > page.Limit {
		out.Items = items[:page.Limit]
		last := out.Items[page.Limit-1]
		out.NextCursor = distribution.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (r *Repository) ListClaimsByDistribution(ctx context.Context, distributionID string) ([]distribution.ProfitClaim, error) {
	var rows []models.ProfitClaim
	if err := r.db.WithContext(ctx).Where("distribution_id = ?", distributionID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("list_claims_by_distribution_failed", err, logrus.Fields{"distribution_id": distributionID})
	}
	return r.claimsFromRows(rows)
}

func (r *Repository) SwapClaim(ctx context.Context, expected distribution.ClaimStatus, expectedVersion int64, next distribution.ProfitClaim) (distribution.ProfitClaim, error) {
	row := claimRow(next)
	if err := r.seal(&row); err != nil {
		return distribution.ProfitClaim{}, err
	}
	updates := stateColumns(row)
	updates["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).Model(&models.ProfitClaim{}).
		Where("id = ? AND status = ? AND version = ?", next.ID, string(expected), expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return distribution.ProfitClaim{}, r.logError("swap_claim_failed", res.Error, logrus.Fields{
			"claim_id":         next.ID,
			"expected_status":  expected,
			"expected_version": expectedVersion,
			"next_status":      next.Status(),
		})
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetClaim(ctx, next.ID); err != nil {
			return distribution.ProfitClaim{}, err
		}
		return distribution.ProfitClaim{}, distribution.ErrStaleClaim
	}
	return r.GetClaim(ctx, next.ID)
}

func (r *Repository) claimsFromRows(rows []models.ProfitClaim) ([]distribution.ProfitClaim, error) {
	for i := range rows {
		if err := r.open(&rows[i]); err != nil {
			return nil, err
		}
	}
	return claimsFromRows(rows)
}

func (r *Repository) seal(row *models.ProfitClaim) error {
	if r.cipher == nil {
		return nil
	}
	sealed, err := r.cipher.Encrypt(row.BankAccount)
	if err != nil {
		return r.logError("seal_bank_account_failed", err, logrus.Fields{"claim_id": row.ID})
	}
	row.BankAccount = sealed
	return nil
}

func (r *Repository) open(row *models.ProfitClaim) error {
	if r.cipher == nil {
		return nil
	}
	plain, err := r.cipher.Decrypt(row.BankAccount)
	if err != nil {
		return r.logError("open_bank_account_failed", err, logrus.Fields{"claim_id": row.ID})
	}
	row.BankAccount = plain
	return nil
}

func (r *Repository) logError(event string, err error, fields logrus.Fields) error {
	entry := r.logger.WithFields(logrus.Fields{
		"event": event,
		"layer": "store",
		"error": err.Error(),
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error("Repository operation failed")
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ distribution.DistributionStore = (*Repository)(nil)
var _ distribution.ClaimStore = (*Repository)(nil)
