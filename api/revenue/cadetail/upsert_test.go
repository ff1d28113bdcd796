package cadetail

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUpsertCAReelReturnsID(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO ca_reel (entite_id, date_ca, categorie_id, contrat_client_id, montant_ht, montant_ttc)")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_id"}).AddRow(int64(7)))

	id, err := UpsertCAReel(context.Background(), mock, "tenant-1", 1, "2024-01-15", 100, dec("50"), dec("60"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFallsBackToSelect(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel")).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT ca_reel_id FROM ca_reel WHERE entite_id = $1 AND date_ca = $2 AND categorie_id = $3")).
		WithArgs(int64(1), "2024-01-15", int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_id"}).AddRow(int64(42)))

	id, err := UpsertCAReel(context.Background(), mock, "tenant-1", 1, "2024-01-15", 100, dec("50"), dec("60"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFailsWhenNoIDAnywhere(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel")).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ca_reel_id FROM ca_reel")).
		WillReturnError(pgx.ErrNoRows)

	_, err := UpsertCAReel(context.Background(), mock, "tenant-1", 1, "2024-01-15", 100, dec("50"), dec("60"))
	require.Error(t, err)

	var ue *UpsertError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "ca_reel", ue.Table)
	assert.Equal(t, int64(1), ue.Key["entite_id"])
	assert.Equal(t, "2024-01-15", ue.Key["date_ca"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWrapsStoreError(t *testing.T) {
	mock := newMockPool(t)

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service")).
		WillReturnError(boom)

	_, err := UpsertCAReelService(context.Background(), mock, 7, 10, dec("50"), dec("60"))
	require.Error(t, err)

	var ue *UpsertError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "ca_reel_service", ue.Table)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCAReelServiceHeure(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO ca_reel_service_heure (ca_reel_service_id, heure, document, montant_ht, montant_ttc, pu_ht, pu_ttc)")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_heure_id"}).AddRow(int64(3)))

	id, err := UpsertCAReelServiceHeure(context.Background(), mock, 9, "07:30", "ticket1", dec("10"), dec("12"), dec("10"), dec("12"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTtcOrHT(t *testing.T) {
	assert.Equal(t, "12", ttcOrHT(dec("12"), dec("10")).String())
	// missing TTC falls back to the HT amount
	assert.Equal(t, "10", ttcOrHT(decimal.Zero, dec("10")).String())
}
