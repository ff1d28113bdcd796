package cadetail

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchStoreLifecycle(t *testing.T) {
	store := NewBatchStore()

	b := store.New("tenant-1", "ca.csv", nil, testRefs())
	require.NotEmpty(t, b.ID)
	assert.Equal(t, "tenant-1", b.ContratClientID)
	assert.Same(t, b, store.Get(b.ID))
	assert.Nil(t, store.Get("missing"))

	store.Delete(b.ID)
	assert.Nil(t, store.Get(b.ID))
}

func TestBatchStorePurgeOlderThan(t *testing.T) {
	store := NewBatchStore()
	old := store.New("tenant-1", "old.csv", nil, nil)
	old.CreatedAt = time.Now().Add(-3 * time.Hour)
	fresh := store.New("tenant-1", "fresh.csv", nil, nil)

	purged := store.PurgeOlderThan(2 * time.Hour)
	assert.Equal(t, 1, purged)
	assert.Nil(t, store.Get(old.ID))
	assert.NotNil(t, store.Get(fresh.ID))
}

func TestErrCollectorCoalesces(t *testing.T) {
	c := newErrCollector()
	c.add("ca_reel", "duplicate key", "entite=1")
	c.add("ca_reel", "duplicate key", "entite=2")
	c.add("ca_reel_service", "fk violation", "ca_reel=7")
	c.add("ca_reel", "duplicate key", "entite=3")

	list := c.list()
	require.Len(t, list, 2)
	assert.Equal(t, "ca_reel", list[0].Type)
	assert.Equal(t, 3, list[0].Count)
	// first-seen details are kept
	assert.Equal(t, "entite=1", list[0].Details)
	assert.Equal(t, "ca_reel_service", list[1].Type)
	assert.Equal(t, 1, list[1].Count)
}

// oneDayGroups mirrors what BuildAggregation produces for a two-service day.
func oneDayGroups() []*DayGroup {
	return []*DayGroup{{
		BranchID:   1,
		Date:       "2024-01-15",
		CategoryID: 100,
		MontantHT:  dec("50"),
		MontantTTC: dec("60"),
		Services: []*ServiceGroup{
			{
				ServiceTypeID: 10,
				MontantHT:     dec("10"),
				MontantTTC:    dec("12"),
				Leaves: []*LeafGroup{
					{Heure: "07:30", Document: "ticket1", PUHT: dec("10"), PUTTC: dec("12"), MontantHT: dec("10"), MontantTTC: dec("12")},
				},
			},
			{
				ServiceTypeID: 11,
				MontantHT:     dec("40"),
				MontantTTC:    dec("48"),
				Leaves: []*LeafGroup{
					{Heure: "12:15", Document: "ticket2", PUHT: dec("20"), PUTTC: dec("24"), MontantHT: dec("40"), MontantTTC: dec("48")},
				},
			},
		},
	}}
}

func TestRunCommitWalksLevelsInOrder(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_id"}).AddRow(int64(70)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service_heure ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_heure_id"}).AddRow(int64(700)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_id"}).AddRow(int64(71)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service_heure ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_heure_id"}).AddRow(int64(701)))

	batch := NewBatchStore().New("tenant-1", "ca.csv", nil, nil)
	report := RunCommit(context.Background(), mock, batch, oneDayGroups())

	assert.Equal(t, 1, report.Days)
	assert.Equal(t, 2, report.Services)
	assert.Equal(t, 2, report.Heures)
	assert.Empty(t, report.Errors)

	progress := batch.ProgressSnapshot()
	assert.Equal(t, "done", progress.Phase)
	assert.Equal(t, 1, progress.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommitFailedDaySkipsChildren(t *testing.T) {
	mock := newMockPool(t)

	// neither the upsert nor the fallback finds the day row; no service or
	// leaf query must follow
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel ")).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ca_reel_id FROM ca_reel")).
		WillReturnError(pgx.ErrNoRows)

	batch := NewBatchStore().New("tenant-1", "ca.csv", nil, nil)
	report := RunCommit(context.Background(), mock, batch, oneDayGroups())

	assert.Zero(t, report.Days)
	assert.Zero(t, report.Services)
	assert.Zero(t, report.Heures)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "ca_reel", report.Errors[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCommitFailedServiceSkipsItsLeavesOnly(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_id"}).AddRow(int64(7)))
	// first service fails outright
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service ")).
		WillReturnError(errors.New("deadlock detected"))
	// second service and its leaf still run
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_id"}).AddRow(int64(71)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ca_reel_service_heure ")).
		WillReturnRows(pgxmock.NewRows([]string{"ca_reel_service_heure_id"}).AddRow(int64(701)))

	batch := NewBatchStore().New("tenant-1", "ca.csv", nil, nil)
	report := RunCommit(context.Background(), mock, batch, oneDayGroups())

	assert.Equal(t, 1, report.Days)
	assert.Equal(t, 1, report.Services)
	assert.Equal(t, 1, report.Heures)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "ca_reel_service", report.Errors[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
