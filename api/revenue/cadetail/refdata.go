package cadetail

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	entitesQuery = `SELECT entite_id, code FROM masterentite
		WHERE contrat_client_id = $1 AND actif = true`

	typeServicesQuery = `SELECT type_service_id, entite_id, code, heure_debut, heure_fin, sous_categorie_id
		FROM mastertypeservice
		WHERE contrat_client_id = $1 AND actif = true
		ORDER BY type_service_id`

	sousCategoriesQuery = `SELECT sous_categorie_id, code, categorie_id FROM mastersouscategorie
		WHERE contrat_client_id = $1 AND actif = true`

	categoriesQuery = `SELECT categorie_id, code, entite_id FROM mastercategorie
		WHERE contrat_client_id = $1 AND actif = true`
)

// LoadReferenceMaps builds the per-tenant reference snapshot in one shot.
// The four loads run concurrently and the whole build fails if any of them
// fails, so the maps are never partially refreshed. Categories are loaded up
// front; there is no lazy backfill during simulation.
func LoadReferenceMaps(ctx context.Context, db PgxIface, contratClientID string) (*ReferenceMaps, error) {
	refs := &ReferenceMaps{
		EntitiesByCode:       make(map[string]int64),
		ServiceTypesByEntity: make(map[int64][]ServiceType),
		SubCategoriesByID:    make(map[int64]SubCategory),
		CategoriesByID:       make(map[int64]Category),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)

	go func() {
		defer wg.Done()
		rows, err := db.Query(ctx, entitesQuery, contratClientID)
		if err != nil {
			fail(fmt.Errorf("load entites: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var code string
			if err := rows.Scan(&id, &code); err != nil {
				fail(fmt.Errorf("scan entite: %w", err))
				return
			}
			mu.Lock()
			refs.EntitiesByCode[strings.ToUpper(strings.TrimSpace(code))] = id
			mu.Unlock()
		}
		if rows.Err() != nil {
			fail(fmt.Errorf("load entites: %w", rows.Err()))
		}
	}()

	go func() {
		defer wg.Done()
		rows, err := db.Query(ctx, typeServicesQuery, contratClientID)
		if err != nil {
			fail(fmt.Errorf("load types service: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var st ServiceType
			var entiteID int64
			if err := rows.Scan(&st.ID, &entiteID, &st.Code, &st.HeureDebut, &st.HeureFin, &st.SubCategoryID); err != nil {
				fail(fmt.Errorf("scan type service: %w", err))
				return
			}
			mu.Lock()
			refs.ServiceTypesByEntity[entiteID] = append(refs.ServiceTypesByEntity[entiteID], st)
			mu.Unlock()
		}
		if rows.Err() != nil {
			fail(fmt.Errorf("load types service: %w", rows.Err()))
		}
	}()

	go func() {
		defer wg.Done()
		rows, err := db.Query(ctx, sousCategoriesQuery, contratClientID)
		if err != nil {
			fail(fmt.Errorf("load sous-categories: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var sc SubCategory
			if err := rows.Scan(&sc.ID, &sc.Code, &sc.CategoryID); err != nil {
				fail(fmt.Errorf("scan sous-categorie: %w", err))
				return
			}
			mu.Lock()
			refs.SubCategoriesByID[sc.ID] = sc
			mu.Unlock()
		}
		if rows.Err() != nil {
			fail(fmt.Errorf("load sous-categories: %w", rows.Err()))
		}
	}()

	go func() {
		defer wg.Done()
		rows, err := db.Query(ctx, categoriesQuery, contratClientID)
		if err != nil {
			fail(fmt.Errorf("load categories: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var c Category
			if err := rows.Scan(&c.ID, &c.Code, &c.BranchID); err != nil {
				fail(fmt.Errorf("scan categorie: %w", err))
				return
			}
			mu.Lock()
			refs.CategoriesByID[c.ID] = c
			mu.Unlock()
		}
		if rows.Err() != nil {
			fail(fmt.Errorf("load categories: %w", rows.Err()))
		}
	}()

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return refs, nil
}
