package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
)

// PruneNotifications deletes read notifications older than the configured
// retention.
func PruneNotifications(ctx JobContext) error {
	days := ctx.Config().Jobs.NotificationRetentionDays
	if days <= 0 {
		log.Println("Notification retention is disabled, nothing to prune.")
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := store.New(ctx.DB()).PruneReadNotifications(cutoff)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	log.Printf("Pruned %d read notifications older than %d days.", n, days)
	return nil
}

// ResyncStatuses republishes the stored status of every pending file and
// report, so subscribers that missed a push converge.
func ResyncStatuses(ctx JobContext) error {
	st := store.New(ctx.DB())
	hub := ctx.WsHub()

	files, err := st.PendingFiles()
	if err != nil {
		return fmt.Errorf("list pending files: %w", err)
	}
	for _, f := range files {
		msg := models.FileStatusMessage{FileID: f.FileID, Status: f.Status.Patch()}
		if err := hub.Publish(models.ChannelFile, f.ApplicantID, msg); err != nil {
			return err
		}
	}

	reports, err := st.PendingReports()
	if err != nil {
		return fmt.Errorf("list pending reports: %w", err)
	}
	for _, r := range reports {
		patch := r.Status.Patch()
		validated := r.Status.Validated
		patch.Validated = &validated
		msg := models.ReportStatusMessage{ReportID: r.ID, Status: patch}
		if err := hub.Publish(models.ChannelReport, r.ApplicationID, msg); err != nil {
			return err
		}
	}

	log.Printf("Republished %d file and %d report statuses.", len(files), len(reports))
	return nil
}
