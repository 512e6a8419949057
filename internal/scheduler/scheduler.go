package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crucial707/userdir/internal/metrics"
	"github.com/crucial707/userdir/internal/repo"
)

// Run starts the background audit retention sweep: on each tick of cronExpr
// it deletes audit entries older than retention. The returned cron can be
// stopped during shutdown. An invalid expression is reported to the caller
// rather than silently dropping retention.
func Run(auditRepo *repo.AuditRepo, cronExpr string, retention time.Duration) (*cron.Cron, error) {
	c := cron.New()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cutoff := time.Now().Add(-retention)
		n, err := auditRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			slog.Error("audit retention sweep", "error", err)
			return
		}
		metrics.AddAuditPruned(n)
		if n > 0 {
			slog.Info("audit retention sweep", "pruned", n, "cutoff", cutoff)
		}
	}

	if _, err := c.AddFunc(cronExpr, sweep); err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("audit retention scheduler started", "cron", cronExpr, "retention", retention)
	return c, nil
}
