// Package jobs holds the periodic maintenance tasks. Each task is a plain
// function over a *gorm.DB so it can be called directly from tests; the
// Scheduler only decides when they run.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"flowfin/internal/finance"
	"flowfin/internal/metrics"
	"flowfin/internal/realtime"
	"flowfin/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	OverdueSchedule = "@hourly"
	GoalsSchedule   = "@daily"
)

// MarkOverdueInvoices moves sent invoices whose due date has passed to overdue.
// An invoice due today is not overdue yet.
func MarkOverdueInvoices(db *gorm.DB, now time.Time) (int64, error) {
	today := finance.DateOnly(now)

	var due []models.Invoice
	if err := db.Where("status = ? AND due_date < ?", models.InvoiceStatusSent, today).
		Find(&due).Error; err != nil {
		return 0, err
	}

	var marked int64
	for i := range due {
		inv := &due[i]
		// conditional so a payment landing in between wins
		res := db.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusSent).
			Update("status", models.InvoiceStatusOverdue)
		if res.Error != nil {
			return marked, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		marked++
		inv.Status = models.InvoiceStatusOverdue
		realtime.GlobalHub.Publish(inv.OrganizationID, realtime.EventInvoiceOverdue, inv)
	}
	return marked, nil
}

// CompleteReachedGoals closes active goals whose deadline has passed and
// whose target was met. Goals that fell short stay active.
func CompleteReachedGoals(db *gorm.DB, now time.Time) (int64, error) {
	var goals []models.Goal
	if err := db.Where("status = ? AND deadline IS NOT NULL AND deadline < ?", models.GoalStatusActive, finance.DateOnly(now)).
		Find(&goals).Error; err != nil {
		return 0, err
	}

	var completed int64
	stamp := now.UTC()
	for i := range goals {
		g := &goals[i]
		if g.CurrentAmount.LessThan(g.TargetAmount) {
			continue
		}
		res := db.Model(&models.Goal{}).
			Where("id = ? AND status = ?", g.ID, models.GoalStatusActive).
			Updates(map[string]interface{}{"status": models.GoalStatusCompleted, "completed_at": stamp})
		if res.Error != nil {
			return completed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		completed++
		g.Status = models.GoalStatusCompleted
		g.CompletedAt = &stamp
		realtime.GlobalHub.Publish(g.OrganizationID, realtime.EventGoalCompleted, g)
	}
	return completed, nil
}

// Scheduler runs the maintenance tasks on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	db   *gorm.DB
	now  func() time.Time
}

func NewScheduler(db *gorm.DB) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		db:   db,
		now:  time.Now,
	}
}

// Start registers the tasks, runs the overdue sweep once so a restart does
// not wait an hour, and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(OverdueSchedule, s.runOverdue); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(GoalsSchedule, s.runGoals); err != nil {
		return err
	}
	s.runOverdue()
	s.cron.Start()
	slog.Info("Job scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop halts the schedule and waits for running tasks or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Job scheduler stop timed out")
	}
}

func (s *Scheduler) runOverdue() {
	n, err := MarkOverdueInvoices(s.db, s.now())
	metrics.JobRun("mark_overdue_invoices", err)
	if err != nil {
		slog.Error("Overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Invoices marked overdue", "count", n)
	}
}

func (s *Scheduler) runGoals() {
	n, err := CompleteReachedGoals(s.db, s.now())
	metrics.JobRun("complete_reached_goals", err)
	if err != nil {
		slog.Error("Goal sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Goals completed", "count", n)
	}
}
