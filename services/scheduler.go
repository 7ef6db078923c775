// services/scheduler.go
package services

import (
	"log"
	"time"

	"recovery-companion-system/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ObservationRetention bounds how long raw observations stay in postgres. The
// in-memory engine logs are untouched — the engine owns those.
const ObservationRetention = 90 * 24 * time.Hour

// StartMaintenanceScheduler runs the recurring maintenance jobs: activating
// catalog modules whose scheduled activation time has passed, and pruning
// observations past the retention horizon.
func StartMaintenanceScheduler(catalog *ModuleCatalog, db *gorm.DB) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: activate scheduled modules
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			for _, id := range catalog.ActivateDue(time.Now()) {
				log.Printf("✅ Auto-activated module %d", id)
			}
		}),
	)

	// Daily: prune observations beyond retention
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-ObservationRetention)
			res := db.Where("observed_at < ?", cutoff).Delete(&models.PatternObservation{})
			if res.Error != nil {
				log.Printf("[Scheduler] Observation prune failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("🧹 Pruned %d observation(s) older than %s", res.RowsAffected, cutoff.Format(time.RFC3339))
			}
		}),
	)
}
