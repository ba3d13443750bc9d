package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockChargeRepository creates a GormChargeRepository with a mocked SQL connection
func newMockChargeRepository(t *testing.T) (*GormChargeRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormChargeRepository(gormDB), mock, mockDB
}

func chargeRow(id, unitID, conceptID uuid.UUID, period string, remaining float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "version", "unit_id", "payer_id", "concept_id", "period", "base_amount", "remaining_balance", "status", "due_date"}).
		AddRow(id, 1, unitID, uuid.New(), conceptID, period, decimal.NewFromInt(100), decimal.NewFromFloat(remaining), "pending", time.Now())
}

func TestGormChargeRepository_FindLiveByUnitConceptPeriod(t *testing.T) {
	unitID := uuid.New()
	conceptID := uuid.New()
	period := billing.Period{Year: 2025, Month: 3}

	t.Run("finds the live charge for the period", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		chargeID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "charges" WHERE unit_id = \$1 AND concept_id = \$2 AND period = \$3 AND status <> \$4 ORDER BY .* LIMIT .*`).
			WithArgs(unitID, conceptID, "2025-03", "voided", 1).
			WillReturnRows(chargeRow(chargeID, unitID, conceptID, "2025-03", 100))

		charge, err := repo.FindLiveByUnitConceptPeriod(context.Background(), unitID, conceptID, period)

		assert.NoError(t, err)
		require.NotNil(t, charge)
		assert.Equal(t, chargeID, charge.ID)
		assert.Equal(t, period, charge.Period)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces a corrupt stored period instead of a zero period", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "charges" WHERE unit_id = \$1 AND concept_id = \$2 AND period = \$3 AND status <> \$4 ORDER BY .* LIMIT .*`).
			WithArgs(unitID, conceptID, "2025-03", "voided", 1).
			WillReturnRows(chargeRow(uuid.New(), unitID, conceptID, "2025-3", 100))

		charge, err := repo.FindLiveByUnitConceptPeriod(context.Background(), unitID, conceptID, period)

		assert.Nil(t, charge)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "period")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for an open period", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "charges" WHERE unit_id = \$1 AND concept_id = \$2 AND period = \$3 AND status <> \$4 ORDER BY .* LIMIT .*`).
			WithArgs(unitID, conceptID, "2025-03", "voided", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		charge, err := repo.FindLiveByUnitConceptPeriod(context.Background(), unitID, conceptID, period)

		assert.Nil(t, charge)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChargeRepository_FindOutstanding(t *testing.T) {
	t.Run("orders open charges oldest due date first", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		payerID := uuid.New()
		unitID := uuid.New()
		conceptID := uuid.New()
		first := uuid.New()
		second := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "version", "unit_id", "payer_id", "concept_id", "period", "base_amount", "remaining_balance", "status", "due_date"}).
			AddRow(first, 1, unitID, payerID, conceptID, "2025-01", decimal.NewFromInt(100), decimal.NewFromInt(100), "pending", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)).
			AddRow(second, 1, unitID, payerID, conceptID, "2025-02", decimal.NewFromInt(100), decimal.NewFromInt(100), "pending", time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC))

		mock.ExpectQuery(`SELECT \* FROM "charges" WHERE \(payer_id = \$1 AND unit_id = \$2\) AND status IN \(\$3,\$4,\$5\) AND remaining_balance > 0 ORDER BY due_date ASC, id ASC`).
			WithArgs(payerID, unitID, "pending", "partially_paid", "overdue").
			WillReturnRows(rows)

		charges, err := repo.FindOutstanding(context.Background(), payerID, unitID)

		assert.NoError(t, err)
		require.Len(t, charges, 2)
		assert.Equal(t, first, charges[0].ID)
		assert.Equal(t, second, charges[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChargeRepository_LatestPeriod(t *testing.T) {
	unitID := uuid.New()
	conceptID := uuid.New()

	t.Run("returns the most recent period", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"max"}).AddRow("2025-06")
		mock.ExpectQuery(`SELECT MAX\(period\) FROM "charges" WHERE unit_id = \$1 AND concept_id = \$2 AND status <> \$3`).
			WithArgs(unitID, conceptID, "voided").
			WillReturnRows(rows)

		period, err := repo.LatestPeriod(context.Background(), unitID, conceptID)

		assert.NoError(t, err)
		assert.Equal(t, billing.Period{Year: 2025, Month: 6}, period)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the zero period when no charges exist", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"max"}).AddRow(nil)
		mock.ExpectQuery(`SELECT MAX\(period\) FROM "charges" WHERE unit_id = \$1 AND concept_id = \$2 AND status <> \$3`).
			WithArgs(unitID, conceptID, "voided").
			WillReturnRows(rows)

		period, err := repo.LatestPeriod(context.Background(), unitID, conceptID)

		assert.NoError(t, err)
		assert.True(t, period.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormChargeRepository_FindByIDs(t *testing.T) {
	t.Run("short-circuits on an empty ID list", func(t *testing.T) {
		repo, mock, mockDB := newMockChargeRepository(t)
		defer mockDB.Close()

		charges, err := repo.FindByIDs(context.Background(), nil)

		assert.NoError(t, err)
		assert.Empty(t, charges)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
