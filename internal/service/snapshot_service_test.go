package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/month"
)

func newSnapshotJob(f *fixture, now func() time.Time, catchUp int) *SnapshotJob {
	budgets := NewBudgetService(f.budgets, f.txs, f.users, nil, now)
	return NewSnapshotJob(budgets, f.budgets, catchUp, log.Discard())
}

func historyCount(t *testing.T, f *fixture) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.BudgetHistory{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSnapshotCapturesPreviousMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	other := f.user(t, "bia", model.RoleMember, nil)
	f.limit(t, u.ID, "Food", 50000)
	f.limit(t, u.ID, "Transport", 10000)
	f.limit(t, other.ID, "Food", 20000)

	f.tx(t, u.ID, "2024-02-01", "Food", model.Expense, 12050)
	f.tx(t, u.ID, "2024-02-29", "Food", model.Expense, 3000)
	f.tx(t, u.ID, "2024-02-10", "Food", model.Income, 100000)
	f.tx(t, u.ID, "2024-03-01", "Transport", model.Expense, 999)
	f.tx(t, other.ID, "2024-02-15", "Food", model.Expense, 7000)

	job := newSnapshotJob(f, clock(2024, time.March, 5), 12)
	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Users != 2 || report.Snapshotted != 2 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if !reflect.DeepEqual(report.Months, []string{"2024-02"}) {
		t.Fatalf("months = %v", report.Months)
	}

	rows, err := f.budgets.ListHistory(ctx, u.ID, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	want := map[string]int64{"Food": 15050, "Transport": 0}
	for _, r := range rows {
		if r.Month != "2024-02" {
			t.Errorf("row month = %s", r.Month)
		}
		if int64(r.Spent) != want[r.Category] {
			t.Errorf("%s spent = %d, want %d", r.Category, r.Spent, want[r.Category])
		}
	}

	wm, ok, err := f.budgets.Watermark(ctx, u.ID)
	if err != nil || !ok || wm != "2024-03" {
		t.Fatalf("watermark = %q %v %v", wm, ok, err)
	}
}

func TestSnapshotIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	f.limit(t, u.ID, "Food", 50000)
	f.tx(t, u.ID, "2024-02-03", "Food", model.Expense, 1000)

	job := newSnapshotJob(f, clock(2024, time.March, 5), 12)
	if _, err := job.Run(ctx); err != nil {
		t.Fatal(err)
	}
	report, err := job.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 1 || report.Snapshotted != 0 {
		t.Fatalf("second run report = %+v", report)
	}

	// a fresh job for the same transition rewrites the same keys
	if err := f.budgets.CommitSnapshot(ctx, u.ID, nil, "2024-02"); err != nil {
		t.Fatal(err)
	}
	if _, err := newSnapshotJob(f, clock(2024, time.March, 20), 12).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if n := historyCount(t, f); n != 1 {
		t.Fatalf("history rows = %d, want 1", n)
	}
}

func TestSnapshotCatchesUpMissedMonths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	f.limit(t, u.ID, "Food", 50000)
	f.tx(t, u.ID, "2023-12-24", "Food", model.Expense, 4000)
	f.tx(t, u.ID, "2024-01-10", "Food", model.Expense, 2500)
	if err := f.budgets.CommitSnapshot(ctx, u.ID, nil, "2023-12"); err != nil {
		t.Fatal(err)
	}

	report, err := newSnapshotJob(f, clock(2024, time.March, 10), 12).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report.Months, []string{"2023-12", "2024-01", "2024-02"}) {
		t.Fatalf("months = %v", report.Months)
	}

	rows, err := f.budgets.ListHistory(ctx, u.ID, 12)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int64{}
	for _, r := range rows {
		got[r.Month] = int64(r.Spent)
	}
	want := map[string]int64{"2023-12": 4000, "2024-01": 2500, "2024-02": 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("spent by month = %v, want %v", got, want)
	}
	if wm, _, _ := f.budgets.Watermark(ctx, u.ID); wm != "2024-03" {
		t.Fatalf("watermark = %q", wm)
	}
}

func TestSnapshotCatchUpIsCapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	f.limit(t, u.ID, "Food", 50000)
	if err := f.budgets.CommitSnapshot(ctx, u.ID, nil, "2020-01"); err != nil {
		t.Fatal(err)
	}

	report, err := newSnapshotJob(f, clock(2024, time.March, 10), 2).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(report.Months, []string{"2024-01", "2024-02"}) {
		t.Fatalf("months = %v", report.Months)
	}
}

func TestSnapshotIgnoresMalformedWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	f.limit(t, u.ID, "Food", 50000)
	if err := f.budgets.CommitSnapshot(ctx, u.ID, nil, "not-a-month"); err != nil {
		t.Fatal(err)
	}

	report, err := newSnapshotJob(f, clock(2024, time.March, 10), 12).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 || !reflect.DeepEqual(report.Months, []string{"2024-02"}) {
		t.Fatalf("report = %+v", report)
	}
	if wm, _, _ := f.budgets.Watermark(ctx, u.ID); wm != "2024-03" {
		t.Fatalf("watermark = %q", wm)
	}
}

func TestSnapshotRejectsOverlappingRun(t *testing.T) {
	f := newFixture(t)
	job := newSnapshotJob(f, clock(2024, time.March, 10), 12)
	job.running.Store(true)

	if _, err := job.Run(context.Background()); !errors.Is(err, ErrSnapshotRunning) {
		t.Fatalf("Run during run = %v, want ErrSnapshotRunning", err)
	}

	settings := NewSettingsService(f.settings, job)
	_, err := settings.RunSnapshot(context.Background())
	if !errors.Is(err, ErrConflict) || !errors.Is(err, ErrSnapshotRunning) {
		t.Fatalf("RunSnapshot = %v, want conflict", err)
	}

	job.running.Store(false)
	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run after release = %v", err)
	}
	if job.Running() {
		t.Fatal("job still marked running")
	}
}

func TestSnapshotStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleManager, nil)
	f.limit(t, u.ID, "Food", 50000)
	job := newSnapshotJob(f, clock(2024, time.March, 10), 12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := job.Run(ctx); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if job.Running() {
		t.Fatal("guard not released")
	}
}

func TestPendingMonths(t *testing.T) {
	current := month.Month{Year: 2024, Month: time.March}
	tests := []struct {
		name      string
		watermark month.Month
		ok        bool
		limit     int
		want      []string
	}{
		{"no watermark", month.Month{}, false, 12, []string{"2024-02"}},
		{"caught up", current, true, 12, nil},
		{"watermark ahead", month.Month{Year: 2024, Month: time.May}, true, 12, nil},
		{"one behind", month.Month{Year: 2024, Month: time.February}, true, 12, []string{"2024-02"}},
		{"across year", month.Month{Year: 2023, Month: time.November}, true, 12, []string{"2023-11", "2023-12", "2024-01", "2024-02"}},
		{"capped", month.Month{Year: 2023, Month: time.November}, true, 2, []string{"2024-01", "2024-02"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range pendingMonths(tt.watermark, tt.ok, current, tt.limit) {
				got = append(got, m.String())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("pendingMonths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotFailureIsIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ok := f.user(t, "ana", model.RoleMember, nil)
	broken := f.user(t, "bia", model.RoleMember, nil)
	f.limit(t, ok.ID, "Food", 50000)
	f.limit(t, broken.ID, "Food", 20000)
	f.tx(t, ok.ID, "2024-02-10", "Food", model.Expense, 4000)

	job := newSnapshotJob(f, clock(2024, time.March, 5), 12)
	rows := job.rows
	job.rows = func(ctx context.Context, userID string, m month.Month) ([]model.BudgetHistory, error) {
		if userID == broken.ID {
			return nil, errors.New("disk on fire")
		}
		return rows(ctx, userID, m)
	}

	report, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 || report.Snapshotted != 1 {
		t.Fatalf("report = %+v", report)
	}

	history, err := f.budgets.ListHistory(ctx, ok.ID, 12)
	if err != nil || len(history) != 1 || history[0].Spent != 4000 {
		t.Fatalf("history of healthy user = %+v, %v", history, err)
	}
	if wm, found, err := f.budgets.Watermark(ctx, ok.ID); err != nil || !found || wm != "2024-03" {
		t.Fatalf("healthy watermark = %q, %v, %v", wm, found, err)
	}
	if _, found, err := f.budgets.Watermark(ctx, broken.ID); err != nil || found {
		t.Fatalf("failing user got a watermark: %v, %v", found, err)
	}

	// the next cycle retries the failed user
	job.rows = rows
	report, err = job.Run(ctx)
	if err != nil || report.Failed != 0 || report.Snapshotted != 1 {
		t.Fatalf("retry report = %+v, %v", report, err)
	}
	if _, found, _ := f.budgets.Watermark(ctx, broken.ID); !found {
		t.Fatal("retry did not advance the watermark")
	}
}
