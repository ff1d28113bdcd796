package master

import (
	"database/sql"
	"log"
	"net/http"

	allMaster "RestoBackOffice/api/master/allMasters"
)

func StartMasterService(db *sql.DB) {
	mux := http.NewServeMux()

	mux.HandleFunc("/master/entites/create", allMaster.CreateEntites(db))
	mux.HandleFunc("/master/entites/get", allMaster.GetEntites(db))
	mux.HandleFunc("/master/entites/update", allMaster.UpdateEntite(db))
	mux.HandleFunc("/master/entites/deactivate", allMaster.DeactivateEntites(db))

	mux.HandleFunc("/master/types-service/create", allMaster.CreateTypesService(db))
	mux.HandleFunc("/master/types-service/get", allMaster.GetTypesService(db))
	mux.HandleFunc("/master/types-service/update", allMaster.UpdateTypeService(db))

	mux.HandleFunc("/master/categories/create", allMaster.CreateCategories(db))
	mux.HandleFunc("/master/sous-categories/create", allMaster.CreateSousCategories(db))
	mux.HandleFunc("/master/categories/tree", allMaster.GetCategorieTree(db))
	mux.HandleFunc("/master/categories/deactivate", allMaster.DeactivateCategories(db))

	mux.HandleFunc("/master/modes-paiement/create", allMaster.CreateModesPaiement(db))
	mux.HandleFunc("/master/modes-paiement/get", allMaster.GetModesPaiement(db))
	mux.HandleFunc("/master/modes-paiement/deactivate", allMaster.DeactivateModesPaiement(db))

	log.Println("Master Service started on :2143")
	if err := http.ListenAndServe(":2143", mux); err != nil {
		log.Fatalf("Master Service failed: %v", err)
	}
}
