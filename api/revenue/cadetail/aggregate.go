package cadetail

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ResolveServices is the simulate step: for every row that is still valid it
// picks the first service type of the row's branch whose window contains the
// row's time, then attaches the service, its sub-category and that
// sub-category's parent category. Rows already carrying an error are left
// untouched; a row with no matching window gets one. Resolution is strictly
// sequential, the reference snapshot is complete before this runs.
func ResolveServices(rows []DetailRow, refs *ReferenceMaps, notices *ImportNotices) {
	for i := range rows {
		row := &rows[i]
		if row.Error != "" {
			continue
		}
		row.ServiceTypeID = 0
		row.SubCategoryID = 0
		row.CategoryID = 0

		var matched *ServiceType
		for _, st := range refs.ServiceTypesByEntity[row.BranchID] {
			if TimeInWindow(row.Heure, st.HeureDebut, st.HeureFin, notices) {
				matched = &st
				break
			}
		}
		if matched == nil {
			row.Error = fmt.Sprintf("no service window matches time %q for entite %s", row.Heure, row.BranchCode)
			continue
		}
		row.ServiceTypeID = matched.ID
		row.SubCategoryID = matched.SubCategoryID

		sc, ok := refs.SubCategoriesByID[matched.SubCategoryID]
		if !ok {
			row.Error = fmt.Sprintf("service %s references unknown sous-categorie %d", matched.Code, matched.SubCategoryID)
			continue
		}
		if _, ok := refs.CategoriesByID[sc.CategoryID]; !ok {
			row.Error = fmt.Sprintf("sous-categorie %s references unknown categorie %d", sc.Code, sc.CategoryID)
			continue
		}
		row.CategoryID = sc.CategoryID
	}
}

type dayKey struct {
	BranchID   int64
	Date       string // ISO yyyy-mm-dd
	CategoryID int64
}

type leafKey struct {
	Heure    string
	Document string
}

// LeafGroup is the finest aggregation grain: one (time, document) pair
// within a service. Colliding rows sum their amounts; the first-seen unit
// prices are kept.
type LeafGroup struct {
	Heure      string
	Document   string
	PUHT       decimal.Decimal
	PUTTC      decimal.Decimal
	MontantHT  decimal.Decimal
	MontantTTC decimal.Decimal
}

type ServiceGroup struct {
	ServiceTypeID int64
	MontantHT     decimal.Decimal
	MontantTTC    decimal.Decimal
	Leaves        []*LeafGroup
	leafIndex     map[leafKey]*LeafGroup
}

type DayGroup struct {
	BranchID   int64
	Date       string
	CategoryID int64
	MontantHT  decimal.Decimal
	MontantTTC decimal.Decimal
	Services   []*ServiceGroup
	svcIndex   map[int64]*ServiceGroup
}

// BuildAggregation groups the resolved rows into the three persisted levels:
// (branch, date, category) -> service type -> (time, document). Rows with an
// error are excluded. Groups keep first-seen insertion order at every level,
// which is the order the commit run walks them in.
func BuildAggregation(rows []DetailRow) []*DayGroup {
	var days []*DayGroup
	dayIndex := make(map[dayKey]*DayGroup)

	for i := range rows {
		row := &rows[i]
		if row.Error != "" {
			continue
		}
		dk := dayKey{BranchID: row.BranchID, Date: row.Date.Format("2006-01-02"), CategoryID: row.CategoryID}
		day, ok := dayIndex[dk]
		if !ok {
			day = &DayGroup{
				BranchID:   dk.BranchID,
				Date:       dk.Date,
				CategoryID: dk.CategoryID,
				svcIndex:   make(map[int64]*ServiceGroup),
			}
			dayIndex[dk] = day
			days = append(days, day)
		}
		day.MontantHT = day.MontantHT.Add(row.MontantHT)
		day.MontantTTC = day.MontantTTC.Add(row.MontantTTC)

		svc, ok := day.svcIndex[row.ServiceTypeID]
		if !ok {
			svc = &ServiceGroup{
				ServiceTypeID: row.ServiceTypeID,
				leafIndex:     make(map[leafKey]*LeafGroup),
			}
			day.svcIndex[row.ServiceTypeID] = svc
			day.Services = append(day.Services, svc)
		}
		svc.MontantHT = svc.MontantHT.Add(row.MontantHT)
		svc.MontantTTC = svc.MontantTTC.Add(row.MontantTTC)

		lk := leafKey{Heure: row.Heure, Document: row.Document}
		leaf, ok := svc.leafIndex[lk]
		if !ok {
			leaf = &LeafGroup{
				Heure:    row.Heure,
				Document: row.Document,
				PUHT:     row.PUHT,
				PUTTC:    row.PUTTC,
			}
			svc.leafIndex[lk] = leaf
			svc.Leaves = append(svc.Leaves, leaf)
		}
		leaf.MontantHT = leaf.MontantHT.Add(row.MontantHT)
		leaf.MontantTTC = leaf.MontantTTC.Add(row.MontantTTC)
	}
	return days
}
