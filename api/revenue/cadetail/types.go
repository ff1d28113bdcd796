package cadetail

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxIface abstracts the subset of pgxpool.Pool used by this package so the
// upsert and reference layers can be tested against pgxmock.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxIface = (*pgxpool.Pool)(nil)

// DetailRow is one parsed line of a CA detail file. Resolution fields stay
// zero until the simulate step fills them in. A non-empty Error excludes the
// row from aggregation and blocks the final commit.
type DetailRow struct {
	ImportSequence int    `json:"import_sequence"`
	BranchCode     string `json:"entite"`
	BranchID       int64  `json:"entite_id,omitempty"`

	RawDate string     `json:"date"`
	Date    *time.Time `json:"parsed_date,omitempty"`
	Heure   string     `json:"heure"`

	Document string `json:"document"`

	PUHT       decimal.Decimal `json:"pu_ht"`
	PUTTC      decimal.Decimal `json:"pu_ttc"`
	MontantHT  decimal.Decimal `json:"montant_ht"`
	MontantTTC decimal.Decimal `json:"montant_ttc"`

	ServiceTypeID int64 `json:"type_service_id,omitempty"`
	SubCategoryID int64 `json:"sous_categorie_id,omitempty"`
	CategoryID    int64 `json:"categorie_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// ServiceType is a named intraday window (lunch, dinner, ...) linked to one
// sub-category, scoped to a branch.
type ServiceType struct {
	ID            int64
	Code          string
	HeureDebut    string // HH:MM
	HeureFin      string // HH:MM, may be earlier than HeureDebut (spans midnight)
	SubCategoryID int64
}

type SubCategory struct {
	ID         int64
	Code       string
	CategoryID int64
}

type Category struct {
	ID       int64
	Code     string
	BranchID int64
}

// ReferenceMaps is the immutable per-tenant reference snapshot one import
// session works against. It is rebuilt whole; never patched.
type ReferenceMaps struct {
	EntitiesByCode       map[string]int64
	ServiceTypesByEntity map[int64][]ServiceType
	SubCategoriesByID    map[int64]SubCategory
	CategoriesByID       map[int64]Category
}

// ImportNotices collects one-time user-facing notices for a single import
// session. The night-hour remap fires at most one notice per session no
// matter how many rows it touches.
type ImportNotices struct {
	mu              sync.Mutex
	nightRemapNoted bool
	Messages        []string
}

func (n *ImportNotices) noteNightRemap() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nightRemapNoted {
		return
	}
	n.nightRemapNoted = true
	n.Messages = append(n.Messages, "Sales between 00:00 and 03:00 are attributed to the previous night's service")
}

// Snapshot returns the accumulated notice messages.
func (n *ImportNotices) Snapshot() []string {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Messages))
	copy(out, n.Messages)
	return out
}

// Progress is the running state surfaced to the UI during a commit run.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// ImportError is one aggregated error line of the post-commit report.
type ImportError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Count   int    `json:"count"`
}
