package notify

import (
	"context"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

// TeamNotifier delivers the internal "new evaluation completed" notification.
// Best-effort: the pipeline logs failures and moves on.
type TeamNotifier interface {
	NotifyTeam(ctx context.Context, event models.NotifyTeamEvent) error
}

// ReportSink receives the renderer-ready report for a completed submission.
// The renderer itself is an external collaborator.
type ReportSink interface {
	ReportReady(ctx context.Context, event models.ReportReadyEvent) error
}

// LogReportSink records report-ready events in the log. Stands in when no
// renderer hand-off is configured.
type LogReportSink struct {
	Logger *utils.Logger
}

func (s *LogReportSink) ReportReady(_ context.Context, event models.ReportReadyEvent) error {
	s.Logger.Info("Report ready",
		"submission_id", event.SubmissionID,
		"tier", event.Report.Tier,
		"overall_score", event.Report.OverallScore)
	return nil
}
