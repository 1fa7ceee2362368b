package workflow

import (
	"context"

	"tonearm/internal/logging"
	"tonearm/internal/preflight"
)

// runPreflightChecks logs readiness at startup. Failures are logged loudly
// but do not block Start: the daemon stays up so the status API can report
// the problem, and affected stages fail with classified errors instead.
func (m *Manager) runPreflightChecks(ctx context.Context) {
	for _, result := range preflight.RunFeatureChecks(ctx, m.cfg) {
		if result.Passed {
			m.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		m.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
		)
	}
}
