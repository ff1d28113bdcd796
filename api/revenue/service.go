package revenue

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"RestoBackOffice/internal/serviceiface"
)

type RevenueService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
	db      *sql.DB
}

func NewRevenueService(cfg map[string]interface{}, pgxPool *pgxpool.Pool, db *sql.DB) serviceiface.Service {
	return &RevenueService{config: cfg, pgxPool: pgxPool, db: db}
}

func (s *RevenueService) Name() string {
	return "revenue"
}

func (s *RevenueService) Start() error {
	go StartRevenueService(s.pgxPool, s.db)
	return nil
}

func (s *RevenueService) Stop() error {
	return nil
}
