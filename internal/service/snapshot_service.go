package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/month"
	"family-finance/internal/repository"
)

// ErrSnapshotRunning is returned when a snapshot run is already in progress.
var ErrSnapshotRunning = errors.New("snapshot already running")

// SnapshotReport summarizes one run of the snapshot job.
type SnapshotReport struct {
	Users       int      `json:"users"`
	Snapshotted int      `json:"snapshotted"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Months      []string `json:"months"`
}

// SnapshotJob copies every finished month's limits and spending into budget
// history for each user owning a limit. A per-user watermark records the
// month the job last ran in, so months missed while the process was down are
// captured on the next run.
type SnapshotJob struct {
	rows    func(ctx context.Context, userID string, m month.Month) ([]model.BudgetHistory, error)
	repo    *repository.BudgetRepository
	logger  *log.Logger
	catchUp int
	now     func() time.Time
	running atomic.Bool
}

func NewSnapshotJob(budgets *BudgetService, repo *repository.BudgetRepository, catchUpMonths int, logger *log.Logger) *SnapshotJob {
	if catchUpMonths < 1 {
		catchUpMonths = 1
	}
	return &SnapshotJob{
		rows:    budgets.snapshotRows,
		repo:    repo,
		logger:  logger.WithComponent(log.ComponentBudget),
		catchUp: catchUpMonths,
		now:     budgets.now,
	}
}

// Running reports whether a run is in progress.
func (j *SnapshotJob) Running() bool {
	return j.running.Load()
}

// Run processes every limit owner once. Failures of a single user are logged
// and counted; only a failure to enumerate users is returned.
func (j *SnapshotJob) Run(ctx context.Context) (SnapshotReport, error) {
	if !j.running.CompareAndSwap(false, true) {
		return SnapshotReport{}, ErrSnapshotRunning
	}
	defer j.running.Store(false)

	var report SnapshotReport
	owners, err := j.repo.LimitOwners(ctx)
	if err != nil {
		return report, fmt.Errorf("list limit owners: %w", err)
	}
	report.Users = len(owners)

	current := month.Current(j.now())
	seen := make(map[string]bool)

	for _, userID := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		months, err := j.snapshotUser(ctx, userID, current)
		switch {
		case err != nil:
			report.Failed++
			j.logger.Error("snapshot failed",
				log.FieldOperation, log.OpSnapshot,
				log.FieldUserID, userID,
				log.FieldError, err,
			)
		case len(months) == 0:
			report.Skipped++
		default:
			report.Snapshotted++
			for _, m := range months {
				if !seen[m] {
					seen[m] = true
					report.Months = append(report.Months, m)
				}
			}
			j.logger.Debug("snapshot saved",
				log.FieldOperation, log.OpSnapshot,
				log.FieldUserID, userID,
				log.FieldCount, len(months),
			)
		}
	}

	if report.Snapshotted > 0 || report.Failed > 0 {
		j.logger.Info("snapshot run finished",
			log.FieldOperation, log.OpSnapshot,
			"users", report.Users,
			"snapshotted", report.Snapshotted,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}

// snapshotUser captures the pending months for one user and advances the
// watermark. It returns the months written, empty when the user is caught up.
func (j *SnapshotJob) snapshotUser(ctx context.Context, userID string, current month.Month) ([]string, error) {
	raw, ok, err := j.repo.Watermark(ctx, userID)
	if err != nil {
		return nil, err
	}

	var watermark month.Month
	if ok {
		watermark, err = month.Parse(raw)
		if err != nil {
			j.logger.Warn("ignoring malformed watermark",
				log.FieldUserID, userID,
				log.FieldMonth, raw,
			)
			ok = false
		}
	}

	pending := pendingMonths(watermark, ok, current, j.catchUp)
	if len(pending) == 0 {
		return nil, nil
	}

	var rows []model.BudgetHistory
	written := make([]string, 0, len(pending))
	for _, m := range pending {
		monthRows, err := j.rows(ctx, userID, m)
		if err != nil {
			return nil, fmt.Errorf("month %s: %w", m, err)
		}
		rows = append(rows, monthRows...)
		written = append(written, m.String())
	}

	if err := j.repo.CommitSnapshot(ctx, userID, rows, current.String()); err != nil {
		return nil, err
	}
	return written, nil
}

// pendingMonths lists the finished months not yet captured. Without a
// watermark only the month before current is pending. With one, every month
// from the watermark up to but excluding current is, capped at limit months.
func pendingMonths(watermark month.Month, ok bool, current month.Month, limit int) []month.Month {
	if !ok {
		return []month.Month{current.Prev()}
	}
	if !watermark.Before(current) {
		return nil
	}
	return month.Range(watermark, current, limit)
}
