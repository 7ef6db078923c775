// workers/risk_sweep_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"recovery-companion-system/models"
	"recovery-companion-system/services"

	"gorm.io/gorm"
)

// RiskSweepWorker periodically recomputes the risk view for every tracked user
// and persists a snapshot row. High-risk users are surfaced in the service log
// with their mirrored username so on-call staff can follow up.
type RiskSweepWorker struct {
	DB       *gorm.DB
	Insights *services.InsightEngine
}

func NewRiskSweepWorker(db *gorm.DB, insights *services.InsightEngine) *RiskSweepWorker {
	return &RiskSweepWorker{DB: db, Insights: insights}
}

// PollRisk runs the sweep loop until ctx is cancelled.
func PollRisk(ctx context.Context, w *RiskSweepWorker, pollInterval time.Duration) {
	log.Println("Starting risk sweep (DB-backed snapshots)...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Risk sweep stopped.")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RiskSweepWorker) sweep() {
	users := w.Insights.TrackedUsers()
	if len(users) == 0 {
		return
	}

	var written, highRisk int
	for _, userID := range users {
		snap := w.Insights.Snapshot(userID)
		if snap.ObservationCount == 0 {
			// Nothing in the window; skip the row, the stream has nothing to say
			continue
		}

		if err := w.DB.Create(&snap).Error; err != nil {
			log.Printf("❌ Failed to persist risk snapshot for %s: %v", userID, err)
			continue
		}
		written++

		if snap.Level == models.RiskLevelHigh {
			highRisk++
			log.Printf("🚨 High risk: %s (observations=%d, high-severity=%d)",
				w.displayName(userID), snap.ObservationCount, snap.HighSeverityCount)
		}
	}

	if written > 0 {
		log.Printf("✅ Risk sweep wrote %d snapshot(s), %d high-risk", written, highRisk)
	}
}

// displayName resolves the mirrored username, falling back to the raw id.
func (w *RiskSweepWorker) displayName(externalUserID string) string {
	var user models.RecoveryUser
	if err := w.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err != nil {
		return externalUserID
	}
	return user.Username
}
