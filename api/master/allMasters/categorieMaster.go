package allMaster

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
)

// The classification is two levels: categorie (linked to an entite) and
// sous-categorie (linked to its parent categorie). Service types point at
// sous-categories; the import derives the parent categorie from there.

type CategorieRequest struct {
	CategorieID int64  `json:"categorie_id"`
	EntiteID    int64  `json:"entite_id"`
	Code        string `json:"code"`
	Libelle     string `json:"libelle"`
	Actif       *bool  `json:"actif"`
}

type SousCategorieRequest struct {
	SousCategorieID int64  `json:"sous_categorie_id"`
	CategorieID     int64  `json:"categorie_id"`
	Code            string `json:"code"`
	Libelle         string `json:"libelle"`
	Actif           *bool  `json:"actif"`
}

// CreateCategories inserts categories in bulk.
func CreateCategories(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID     string             `json:"user_id"`
			Categories []CategorieRequest `json:"categories"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.Categories) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		inserted := []map[string]interface{}{}
		for _, c := range req.Categories {
			code := strings.ToUpper(strings.TrimSpace(c.Code))
			if code == "" || c.EntiteID == 0 {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": "missing code or entite_id", "libelle": c.Libelle})
				continue
			}
			var id int64
			err := db.QueryRow(`INSERT INTO mastercategorie (contrat_client_id, entite_id, code, libelle, actif, created_by, created_at)
				VALUES ($1, $2, $3, $4, true, $5, now()) RETURNING categorie_id`,
				session.ContratClientID, c.EntiteID, code, c.Libelle, session.Email).Scan(&id)
			if err != nil {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": err.Error(), "code": code})
				continue
			}
			inserted = append(inserted, map[string]interface{}{"success": true, "categorie_id": id, "code": code})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "categories": inserted})
	}
}

// CreateSousCategories inserts sub-categories in bulk under existing
// categories.
func CreateSousCategories(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID         string                 `json:"user_id"`
			SousCategories []SousCategorieRequest `json:"sous_categories"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.SousCategories) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		inserted := []map[string]interface{}{}
		for _, sc := range req.SousCategories {
			code := strings.ToUpper(strings.TrimSpace(sc.Code))
			if code == "" || sc.CategorieID == 0 {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": "missing code or categorie_id", "libelle": sc.Libelle})
				continue
			}
			var id int64
			err := db.QueryRow(`INSERT INTO mastersouscategorie (contrat_client_id, categorie_id, code, libelle, actif, created_by, created_at)
				VALUES ($1, $2, $3, $4, true, $5, now()) RETURNING sous_categorie_id`,
				session.ContratClientID, sc.CategorieID, code, sc.Libelle, session.Email).Scan(&id)
			if err != nil {
				inserted = append(inserted, map[string]interface{}{"success": false, "error": err.Error(), "code": code})
				continue
			}
			inserted = append(inserted, map[string]interface{}{"success": true, "sous_categorie_id": id, "code": code})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "sous_categories": inserted})
	}
}

// GetCategorieTree returns categories with their nested sub-categories.
func GetCategorieTree(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}

		catRows, err := db.Query(`SELECT categorie_id, entite_id, code, libelle, actif FROM mastercategorie
			WHERE contrat_client_id = $1 ORDER BY code`, session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		defer catRows.Close()

		tree := []map[string]interface{}{}
		byID := map[int64]map[string]interface{}{}
		for catRows.Next() {
			var id, entiteID int64
			var code, libelle string
			var actif bool
			if err := catRows.Scan(&id, &entiteID, &code, &libelle, &actif); err != nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			node := map[string]interface{}{
				"categorie_id": id, "entite_id": entiteID, "code": code, "libelle": libelle, "actif": actif,
				"sous_categories": []map[string]interface{}{},
			}
			byID[id] = node
			tree = append(tree, node)
		}

		scRows, err := db.Query(`SELECT sous_categorie_id, categorie_id, code, libelle, actif FROM mastersouscategorie
			WHERE contrat_client_id = $1 ORDER BY code`, session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		defer scRows.Close()
		for scRows.Next() {
			var id, categorieID int64
			var code, libelle string
			var actif bool
			if err := scRows.Scan(&id, &categorieID, &code, &libelle, &actif); err != nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
				return
			}
			parent, ok := byID[categorieID]
			if !ok {
				continue
			}
			children := parent["sous_categories"].([]map[string]interface{})
			parent["sous_categories"] = append(children, map[string]interface{}{
				"sous_categorie_id": id, "code": code, "libelle": libelle, "actif": actif,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": tree})
	}
}

// DeactivateCategories flips categories and their sub-categories inactive.
func DeactivateCategories(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID       string  `json:"user_id"`
			CategorieIDs []int64 `json:"categorie_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || len(req.CategorieIDs) == 0 {
			http.Error(w, "Invalid JSON or missing fields", http.StatusBadRequest)
			return
		}
		session, ok := sessionTenant(w, req.UserID)
		if !ok {
			return
		}
		_, err := db.Exec(`UPDATE mastersouscategorie SET actif = false, updated_by = $1, updated_at = now()
			WHERE categorie_id = ANY($2) AND contrat_client_id = $3`,
			session.Email, int64Array(req.CategorieIDs), session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		res, err := db.Exec(`UPDATE mastercategorie SET actif = false, updated_by = $1, updated_at = now()
			WHERE categorie_id = ANY($2) AND contrat_client_id = $3`,
			session.Email, int64Array(req.CategorieIDs), session.ContratClientID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		n, _ := res.RowsAffected()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "deactivated": n})
	}
}
