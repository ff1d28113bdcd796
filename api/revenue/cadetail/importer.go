package cadetail

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImportBatch is the in-memory state of one upload between the three steps
// (upload, simulate, commit). Rows and the reference snapshot belong to the
// batch; the snapshot is never refreshed while the batch lives.
type ImportBatch struct {
	ID              string
	ContratClientID string
	FileName        string
	CreatedAt       time.Time

	mu        sync.Mutex
	Rows      []DetailRow
	Refs      *ReferenceMaps
	Notices   *ImportNotices
	Simulated bool
	progress  Progress
}

func (b *ImportBatch) setProgress(phase string, current, total int, message string) {
	b.mu.Lock()
	b.progress = Progress{Current: current, Total: total, Phase: phase, Message: message}
	b.mu.Unlock()
}

// ProgressSnapshot returns the current progress state.
func (b *ImportBatch) ProgressSnapshot() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// BatchStore holds live import batches keyed by batch id. Batches are purged
// by the cron sweep once they outlive their TTL.
type BatchStore struct {
	mu      sync.Mutex
	batches map[string]*ImportBatch
}

func NewBatchStore() *BatchStore {
	return &BatchStore{batches: make(map[string]*ImportBatch)}
}

func (s *BatchStore) New(contratClientID, fileName string, rows []DetailRow, refs *ReferenceMaps) *ImportBatch {
	b := &ImportBatch{
		ID:              uuid.New().String(),
		ContratClientID: contratClientID,
		FileName:        fileName,
		CreatedAt:       time.Now(),
		Rows:            rows,
		Refs:            refs,
		Notices:         &ImportNotices{},
	}
	s.mu.Lock()
	s.batches[b.ID] = b
	s.mu.Unlock()
	return b
}

func (s *BatchStore) Get(id string) *ImportBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[id]
}

func (s *BatchStore) Delete(id string) {
	s.mu.Lock()
	delete(s.batches, id)
	s.mu.Unlock()
}

// PurgeOlderThan drops batches created before the cutoff and returns how
// many were removed.
func (s *BatchStore) PurgeOlderThan(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, b := range s.batches {
		if b.CreatedAt.Before(cutoff) {
			delete(s.batches, id)
			n++
		}
	}
	return n
}

var defaultBatchStore = NewBatchStore()

// Batches returns the process-wide batch store.
func Batches() *BatchStore { return defaultBatchStore }

// CommitReport is what a commit run hands back: how much was written and the
// coalesced persistence errors, if any.
type CommitReport struct {
	Days     int           `json:"days"`
	Services int           `json:"services"`
	Heures   int           `json:"heures"`
	Errors   []ImportError `json:"errors,omitempty"`
}

type errKey struct {
	Type    string
	Message string
}

type errCollector struct {
	order []errKey
	byKey map[errKey]*ImportError
}

func newErrCollector() *errCollector {
	return &errCollector{byKey: make(map[errKey]*ImportError)}
}

func (c *errCollector) add(typ, message, details string) {
	k := errKey{Type: typ, Message: message}
	if e, ok := c.byKey[k]; ok {
		e.Count++
		return
	}
	c.byKey[k] = &ImportError{Type: typ, Message: message, Details: details, Count: 1}
	c.order = append(c.order, k)
}

func (c *errCollector) list() []ImportError {
	out := make([]ImportError, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.byKey[k])
	}
	return out
}

// RunCommit walks the aggregation sequentially: level-1 day record, then its
// service subgroups, then their (time, document) leaves. A failed upsert is
// recorded with its level and natural key and the run moves on to the next
// group; a failed parent skips its children since they have no id to hang
// off. Progress is updated around each day group.
func RunCommit(ctx context.Context, db PgxIface, batch *ImportBatch, groups []*DayGroup) CommitReport {
	report := CommitReport{}
	errs := newErrCollector()
	total := len(groups)

	for i, day := range groups {
		batch.setProgress("saving", i, total, fmt.Sprintf("Saving CA for entite %d, %s", day.BranchID, day.Date))

		caReelID, err := UpsertCAReel(ctx, db, batch.ContratClientID, day.BranchID, day.Date, day.CategoryID, day.MontantHT, day.MontantTTC)
		if err != nil {
			log.Printf("[cadetail] ca_reel upsert failed: %v", err)
			errs.add("ca_reel", err.Error(), fmt.Sprintf("entite=%d date=%s categorie=%d", day.BranchID, day.Date, day.CategoryID))
			continue
		}
		report.Days++

		for _, svc := range day.Services {
			svcID, err := UpsertCAReelService(ctx, db, caReelID, svc.ServiceTypeID, svc.MontantHT, svc.MontantTTC)
			if err != nil {
				log.Printf("[cadetail] ca_reel_service upsert failed: %v", err)
				errs.add("ca_reel_service", err.Error(), fmt.Sprintf("ca_reel=%d type_service=%d", caReelID, svc.ServiceTypeID))
				continue
			}
			report.Services++

			for _, leaf := range svc.Leaves {
				_, err := UpsertCAReelServiceHeure(ctx, db, svcID, leaf.Heure, leaf.Document, leaf.MontantHT, leaf.MontantTTC, leaf.PUHT, leaf.PUTTC)
				if err != nil {
					log.Printf("[cadetail] ca_reel_service_heure upsert failed: %v", err)
					errs.add("ca_reel_service_heure", err.Error(), fmt.Sprintf("ca_reel_service=%d heure=%s document=%q", svcID, leaf.Heure, leaf.Document))
					continue
				}
				report.Heures++
			}
		}
		batch.setProgress("saving", i+1, total, fmt.Sprintf("Saved CA for entite %d, %s", day.BranchID, day.Date))
	}

	report.Errors = errs.list()
	if len(report.Errors) == 0 {
		batch.setProgress("done", total, total, "Import completed")
	} else {
		batch.setProgress("done", total, total, fmt.Sprintf("Import completed with %d error(s)", len(report.Errors)))
	}
	return report
}
