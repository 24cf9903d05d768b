package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/kujua-learning/kujua-api/model"
)

// cronLogRetention is how long completed job logs are kept
const cronLogRetention = 30 * 24 * time.Hour

// RefreshDashboardStats rewarms the admin dashboard cache so the first
// admin request after expiry does not pay the aggregation cost
func (m *CronManager) RefreshDashboardStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	jobName := "refresh_dashboard_stats"

	stats, err := m.admin.RefreshDashboardStats(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to refresh dashboard stats: %w", err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf(
		"Refreshed dashboard stats: %d learners, %d certificates",
		stats.TotalLearners, stats.CertificatesIssued))
}

// CleanupCronLogs prunes job log rows older than the retention window
func (m *CronManager) CleanupCronLogs() {
	jobName := "cleanup_cron_logs"

	cutoff := time.Now().Add(-cronLogRetention)

	result := m.db.Where("started_at < ? AND status != ?", cutoff, "running").
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete old logs: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d old cron logs", result.RowsAffected))
}
