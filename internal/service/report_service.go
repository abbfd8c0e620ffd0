package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/familyfund/internal/calculator"
	"github.com/mmynk/familyfund/internal/clean"
	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/schedule"
)

// ReportService builds the dashboard and review views.
type ReportService struct {
	source TransactionSource
	weeks  calculator.WeekRange
	logger *slog.Logger
}

// NewReportService creates a report service over the week range of cal.
func NewReportService(source TransactionSource, cal schedule.Calendar, logger *slog.Logger) *ReportService {
	return &ReportService{
		source: source,
		weeks:  calculator.WeekRange{Start: cal.StartWeek, End: cal.EndWeek},
		logger: logger,
	}
}

// Weeks returns the tracked week range.
func (s *ReportService) Weeks() calculator.WeekRange {
	return s.weeks
}

// Transactions returns every cleaned row. refresh bypasses the cache.
func (s *ReportService) Transactions(ctx context.Context, refresh bool) ([]models.Transaction, error) {
	raw, err := s.source.Transactions(ctx, refresh)
	if err != nil {
		s.logger.Error("Failed to load transactions", "refresh", refresh, "error", err)
		return nil, err
	}
	return clean.Transactions(raw), nil
}

// UserDashboard builds username's dashboard.
func (s *ReportService) UserDashboard(ctx context.Context, username string) (calculator.UserSummary, error) {
	txns, err := s.Transactions(ctx, false)
	if err != nil {
		return calculator.UserSummary{}, err
	}
	return calculator.UserDashboard(txns, username), nil
}

// AdminDashboard builds the admin dashboard.
func (s *ReportService) AdminDashboard(ctx context.Context, filter calculator.AdminFilter, refresh bool) (calculator.AdminSummary, error) {
	txns, err := s.Transactions(ctx, refresh)
	if err != nil {
		return calculator.AdminSummary{}, err
	}
	return calculator.AdminDashboard(txns, s.weeks, filter), nil
}

// AdminReview builds the review page with member selected for drill-down.
func (s *ReportService) AdminReview(ctx context.Context, member string, refresh bool) (calculator.Review, error) {
	txns, err := s.Transactions(ctx, refresh)
	if err != nil {
		return calculator.Review{}, err
	}
	return calculator.AdminReview(txns, s.weeks, member), nil
}
