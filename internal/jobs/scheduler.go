package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"RestoBackOffice/api/revenue/cadetail"
	"RestoBackOffice/internal/config"
	"RestoBackOffice/internal/logger"
)

// CronService runs the periodic housekeeping jobs: expired import
// batches are swept out of memory so abandoned uploads do not pile up.
type CronService struct {
	Config   map[string]interface{}
	cron     *cron.Cron
	schedule string
}

func NewCronService(cfg map[string]interface{}) *CronService {
	schedule, _ := cfg["clean_schedule"].(string)
	if schedule == "" {
		schedule = config.DefaultCleanSchedule
	}
	return &CronService{
		Config:   cfg,
		schedule: schedule,
	}
}

func (c *CronService) Name() string {
	return "Cron"
}

func (c *CronService) Start() error {
	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		return fmt.Errorf("cron: load location: %w", err)
	}
	c.cron = cron.New(cron.WithLocation(loc))

	_, err = c.cron.AddFunc(c.schedule, func() {
		ttl := time.Duration(config.ImportSessionTTLHours) * time.Hour
		purged := cadetail.Batches().PurgeOlderThan(ttl)
		if purged > 0 {
			log.Printf("[Cron] purged %d stale import batch(es)", purged)
			if logger.GlobalLogger != nil {
				logger.GlobalLogger.LogAudit(fmt.Sprintf("cron purged %d stale import batch(es)", purged))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("cron: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	log.Printf("[Cron] started, batch sweep on %q", c.schedule)
	return nil
}

func (c *CronService) Stop() error {
	if c.cron != nil {
		ctx := c.cron.Stop()
		<-ctx.Done()
	}
	log.Println("[Cron] stopped")
	return nil
}
