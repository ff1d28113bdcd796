package revenue

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"RestoBackOffice/api/revenue/cadetail"
	"RestoBackOffice/api/revenue/invoices"
)

func StartRevenueService(pgxPool *pgxpool.Pool, db *sql.DB) {
	mux := http.NewServeMux()

	mux.HandleFunc("/revenue/cadetail/upload", cadetail.UploadCADetail(pgxPool))
	mux.HandleFunc("/revenue/cadetail/simulate", cadetail.SimulateCADetail(pgxPool))
	mux.HandleFunc("/revenue/cadetail/commit", cadetail.CommitCADetail(pgxPool))
	mux.HandleFunc("/revenue/cadetail/progress", cadetail.GetCADetailProgress())
	mux.HandleFunc("/revenue/cadetail/template", cadetail.DownloadCADetailTemplate())

	mux.HandleFunc("/revenue/factures/upload", invoices.UploadInvoices(db))
	mux.HandleFunc("/revenue/factures/template", invoices.DownloadInvoiceTemplate())

	log.Println("Revenue Service started on :5143")
	if err := http.ListenAndServe(":5143", mux); err != nil {
		log.Fatalf("Revenue Service failed: %v", err)
	}
}
