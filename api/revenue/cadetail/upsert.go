package cadetail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UpsertError is raised when neither the upsert nor the fallback lookup
// yields a row identifier. It names the table and the natural key attempted;
// a zero or synthetic id is never returned in its place.
type UpsertError struct {
	Table string
	Key   map[string]interface{}
	Err   error
}

func (e *UpsertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upsert %s key=%v: %v", e.Table, e.Key, e.Err)
	}
	return fmt.Sprintf("upsert %s key=%v: no identifier returned", e.Table, e.Key)
}

func (e *UpsertError) Unwrap() error { return e.Err }

type upsertSpec struct {
	Table    string
	IDCol    string
	KeyCols  []string
	KeyVals  []interface{}
	DataCols []string
	DataVals []interface{}
}

func (s upsertSpec) keyMap() map[string]interface{} {
	m := make(map[string]interface{}, len(s.KeyCols))
	for i, c := range s.KeyCols {
		m[c] = s.KeyVals[i]
	}
	return m
}

// upsertReturningID is the one upsert primitive the three persisted levels
// share: INSERT .. ON CONFLICT (natural key) DO UPDATE .. RETURNING id, and
// when the store does not hand the id back, a point select with the exact
// same natural-key predicate. Running it twice with the same key and amounts
// is a no-op; different amounts overwrite the existing row.
func upsertReturningID(ctx context.Context, db PgxIface, spec upsertSpec) (int64, error) {
	cols := append(append([]string{}, spec.KeyCols...), spec.DataCols...)
	vals := append(append([]interface{}{}, spec.KeyVals...), spec.DataVals...)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updates := make([]string, len(spec.DataCols))
	for i, c := range spec.DataCols {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		spec.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(spec.KeyCols, ", "),
		strings.Join(updates, ", "),
		spec.IDCol,
	)

	var id int64
	err := db.QueryRow(ctx, sql, vals...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, &UpsertError{Table: spec.Table, Key: spec.keyMap(), Err: err}
	}

	// The store accepted the upsert but returned no row; look the id up by
	// the same natural key.
	preds := make([]string, len(spec.KeyCols))
	for i, c := range spec.KeyCols {
		preds[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	lookup := fmt.Sprintf("SELECT %s FROM %s WHERE %s", spec.IDCol, spec.Table, strings.Join(preds, " AND "))
	err = db.QueryRow(ctx, lookup, spec.KeyVals...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &UpsertError{Table: spec.Table, Key: spec.keyMap()}
	}
	if err != nil {
		return 0, &UpsertError{Table: spec.Table, Key: spec.keyMap(), Err: err}
	}
	return id, nil
}

// ttcOrHT substitutes the HT amount when no TTC amount was supplied.
func ttcOrHT(ttc, ht decimal.Decimal) decimal.Decimal {
	if ttc.IsZero() {
		return ht
	}
	return ttc
}

// UpsertCAReel writes the level-1 revenue-day record, unique per
// (entite, date, categorie), and returns its id.
func UpsertCAReel(ctx context.Context, db PgxIface, contratClientID string, entiteID int64, date string, categorieID int64, ht, ttc decimal.Decimal) (int64, error) {
	return upsertReturningID(ctx, db, upsertSpec{
		Table:    "ca_reel",
		IDCol:    "ca_reel_id",
		KeyCols:  []string{"entite_id", "date_ca", "categorie_id"},
		KeyVals:  []interface{}{entiteID, date, categorieID},
		DataCols: []string{"contrat_client_id", "montant_ht", "montant_ttc"},
		DataVals: []interface{}{contratClientID, ht, ttcOrHT(ttc, ht)},
	})
}

// UpsertCAReelService writes the level-2 revenue-day-service record, unique
// per (ca_reel, type_service).
func UpsertCAReelService(ctx context.Context, db PgxIface, caReelID, typeServiceID int64, ht, ttc decimal.Decimal) (int64, error) {
	return upsertReturningID(ctx, db, upsertSpec{
		Table:    "ca_reel_service",
		IDCol:    "ca_reel_service_id",
		KeyCols:  []string{"ca_reel_id", "type_service_id"},
		KeyVals:  []interface{}{caReelID, typeServiceID},
		DataCols: []string{"montant_ht", "montant_ttc"},
		DataVals: []interface{}{ht, ttcOrHT(ttc, ht)},
	})
}

// UpsertCAReelServiceHeure writes the level-3 record, unique per
// (ca_reel_service, heure, document), carrying the finest-grain amounts and
// unit prices.
func UpsertCAReelServiceHeure(ctx context.Context, db PgxIface, caReelServiceID int64, heure, document string, ht, ttc, puHT, puTTC decimal.Decimal) (int64, error) {
	return upsertReturningID(ctx, db, upsertSpec{
		Table:    "ca_reel_service_heure",
		IDCol:    "ca_reel_service_heure_id",
		KeyCols:  []string{"ca_reel_service_id", "heure", "document"},
		KeyVals:  []interface{}{caReelServiceID, heure, document},
		DataCols: []string{"montant_ht", "montant_ttc", "pu_ht", "pu_ttc"},
		DataVals: []interface{}{ht, ttcOrHT(ttc, ht), puHT, ttcOrHT(puTTC, puHT)},
	})
}
