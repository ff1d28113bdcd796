package cadetail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRows(t *testing.T, records [][]string) []DetailRow {
	t.Helper()
	rows, err := BuildRows(records, testRefs())
	require.NoError(t, err)
	return rows
}

func TestResolveServices(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"CDP", "15/01/2024", "7h30", "ticket1", "10,00", "12,00", "10,00", "12,00"},
		{"CDP", "15/01/2024", "12:15", "ticket2", "20,00", "24,00", "40,00", "48,00"},
		{"CDP", "15/01/2024", "17:00", "ticket3", "1", "1", "1", "1"},
	})
	notices := &ImportNotices{}
	ResolveServices(rows, testRefs(), notices)

	assert.Equal(t, int64(10), rows[0].ServiceTypeID)
	assert.Equal(t, int64(20), rows[0].SubCategoryID)
	assert.Equal(t, int64(100), rows[0].CategoryID)
	assert.Empty(t, rows[0].Error)

	assert.Equal(t, int64(11), rows[1].ServiceTypeID)
	assert.Equal(t, int64(21), rows[1].SubCategoryID)

	// 17:00 falls in no window
	assert.Contains(t, rows[2].Error, "no service window")
	assert.Zero(t, rows[2].ServiceTypeID)
}

func TestResolveServicesNightRowJoinsNightService(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"CDP", "16/01/2024", "01:30", "ticket", "5,00", "6,00", "5,00", "6,00"},
	})
	notices := &ImportNotices{}
	ResolveServices(rows, testRefs(), notices)

	assert.Equal(t, int64(12), rows[0].ServiceTypeID)
	assert.Len(t, notices.Snapshot(), 1)
}

func TestResolveServicesSkipsRowsInError(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"XXX", "15/01/2024", "12:00", "ticket", "1", "1", "1", "1"},
	})
	before := rows[0].Error
	ResolveServices(rows, testRefs(), &ImportNotices{})
	assert.Equal(t, before, rows[0].Error)
	assert.Zero(t, rows[0].ServiceTypeID)
}

func TestResolveServicesBrokenReferenceChain(t *testing.T) {
	refs := testRefs()
	delete(refs.SubCategoriesByID, 21)

	rows := validRows(t, [][]string{
		header(),
		{"CDP", "15/01/2024", "12:00", "ticket", "1", "1", "1", "1"},
	})
	ResolveServices(rows, refs, &ImportNotices{})
	assert.Contains(t, rows[0].Error, "unknown sous-categorie")
}

func TestBuildAggregation(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"CDP", "15/01/2024", "7h30", "ticket1", "10,00", "12,00", "10,00", "12,00"},
		{"CDP", "15/01/2024", "12:15", "ticket2", "20,00", "24,00", "40,00", "48,00"},
	})
	ResolveServices(rows, testRefs(), &ImportNotices{})
	for _, r := range rows {
		require.Empty(t, r.Error)
	}

	groups := BuildAggregation(rows)
	require.Len(t, groups, 1, "same branch, date and category collapse into one day")

	day := groups[0]
	assert.Equal(t, int64(1), day.BranchID)
	assert.Equal(t, "2024-01-15", day.Date)
	assert.Equal(t, int64(100), day.CategoryID)
	assert.Equal(t, "50", day.MontantHT.String())
	assert.Equal(t, "60", day.MontantTTC.String())

	require.Len(t, day.Services, 2)
	assert.Equal(t, int64(10), day.Services[0].ServiceTypeID)
	assert.Equal(t, int64(11), day.Services[1].ServiceTypeID)
	assert.Equal(t, "10", day.Services[0].MontantHT.String())
	assert.Equal(t, "40", day.Services[1].MontantHT.String())

	require.Len(t, day.Services[0].Leaves, 1)
	leaf := day.Services[0].Leaves[0]
	assert.Equal(t, "07:30", leaf.Heure)
	assert.Equal(t, "ticket1", leaf.Document)
	assert.Equal(t, "12", leaf.MontantTTC.String())
}

func TestBuildAggregationCollapsesDuplicateLeaves(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"CDP", "15/01/2024", "12:15", "ticket", "20,00", "24,00", "40,00", "48,00"},
		{"CDP", "15/01/2024", "12:15", "ticket", "99,00", "99,00", "40,00", "48,00"},
	})
	ResolveServices(rows, testRefs(), &ImportNotices{})
	groups := BuildAggregation(rows)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Services, 1)
	require.Len(t, groups[0].Services[0].Leaves, 1)

	leaf := groups[0].Services[0].Leaves[0]
	assert.Equal(t, "80", leaf.MontantHT.String())
	assert.Equal(t, "96", leaf.MontantTTC.String())
	// first-seen unit prices win
	assert.Equal(t, "20", leaf.PUHT.String())
	assert.Equal(t, "24", leaf.PUTTC.String())
}

func TestBuildAggregationExcludesRowsInError(t *testing.T) {
	rows := validRows(t, [][]string{
		header(),
		{"CDP", "15/01/2024", "12:15", "ticket1", "1", "1", "10,00", "12,00"},
		{"CDP", "15/01/2024", "17:00", "ticket2", "1", "1", "99,00", "99,00"},
	})
	ResolveServices(rows, testRefs(), &ImportNotices{})
	groups := BuildAggregation(rows)

	require.Len(t, groups, 1)
	assert.Equal(t, "10", groups[0].MontantHT.String())
}

func TestBuildAggregationSplitsByDateAndBranch(t *testing.T) {
	refs := testRefs()
	refs.EntitiesByCode["BIS"] = 2
	refs.ServiceTypesByEntity[2] = refs.ServiceTypesByEntity[1]

	rows, err := BuildRows([][]string{
		header(),
		{"CDP", "15/01/2024", "12:00", "a", "1", "1", "1", "1"},
		{"CDP", "16/01/2024", "12:00", "b", "1", "1", "1", "1"},
		{"BIS", "15/01/2024", "12:00", "c", "1", "1", "1", "1"},
	}, refs)
	require.NoError(t, err)
	ResolveServices(rows, refs, &ImportNotices{})

	groups := BuildAggregation(rows)
	require.Len(t, groups, 3)
	// insertion order follows first appearance in the file
	assert.Equal(t, "2024-01-15", groups[0].Date)
	assert.Equal(t, int64(1), groups[0].BranchID)
	assert.Equal(t, "2024-01-16", groups[1].Date)
	assert.Equal(t, int64(2), groups[2].BranchID)
}
