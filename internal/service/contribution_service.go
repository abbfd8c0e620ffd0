package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/calculator"
	"github.com/mmynk/familyfund/internal/clean"
	"github.com/mmynk/familyfund/internal/metrics"
	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/receipts"
	"github.com/mmynk/familyfund/internal/schedule"
)

// DefaultMinAmount is the smallest accepted weekly contribution.
var DefaultMinAmount = decimal.NewFromInt(1000)

// TransactionSource is the cached TRANSACTION tab.
type TransactionSource interface {
	// Transactions returns the raw tab. force bypasses the cache.
	Transactions(ctx context.Context, force bool) (models.Table, error)
	AppendTransaction(ctx context.Context, txn models.Transaction) error
}

// ContributionService schedules and records weekly contributions.
type ContributionService struct {
	source    TransactionSource
	calendar  schedule.Calendar
	minAmount decimal.Decimal
	uploader  receipts.Uploader
	now       func() time.Time
	logger    *slog.Logger
}

// NewContributionService creates the service. uploader may be nil, which
// disables receipt uploads.
func NewContributionService(source TransactionSource, calendar schedule.Calendar, minAmount decimal.Decimal, uploader receipts.Uploader, logger *slog.Logger) *ContributionService {
	return &ContributionService{
		source:    source,
		calendar:  calendar,
		minAmount: minAmount,
		uploader:  uploader,
		now:       time.Now,
		logger:    logger,
	}
}

// ContributionPage is what the submit page shows.
type ContributionPage struct {
	Username        string
	Plan            schedule.Plan
	MinAmount       decimal.Decimal
	PaidWeeks       []int
	ReceiptsEnabled bool
	// Status explains what the member can do next.
	Status string
}

// Page loads the member's schedule from the cached tab.
func (s *ContributionService) Page(ctx context.Context, username string) (ContributionPage, error) {
	name := models.NormalizeName(username)
	mine, err := s.memberRows(ctx, name, false)
	if err != nil {
		return ContributionPage{}, err
	}

	paid := calculator.PaidWeeks(mine)
	plan := s.calendar.Plan(s.now(), paid)

	weeks := make([]int, 0, len(paid))
	for w := range paid {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	return ContributionPage{
		Username:        name,
		Plan:            plan,
		MinAmount:       s.minAmount,
		PaidWeeks:       weeks,
		ReceiptsEnabled: s.uploader != nil,
		Status:          status(plan),
	}, nil
}

// SubmitRequest is one contribution attempt. Week 0 means "whatever is due".
type SubmitRequest struct {
	Username string
	Week     int
	Amount   decimal.Decimal
	Receipt  *receipts.File
}

// Submission is a recorded contribution.
type Submission struct {
	Username    string
	Week        int
	Amount      decimal.Decimal
	ReceiptLink string
	// Message is the one-shot confirmation for the next page.
	Message string
}

// Submit validates and appends a contribution. Checks run in order: amount
// floor, week range, then a fresh uncached read for the duplicate and
// due-week checks. The read and the append are not atomic; two concurrent
// submissions for the same week can both pass.
func (s *ContributionService) Submit(ctx context.Context, req SubmitRequest) (sub Submission, err error) {
	name := models.NormalizeName(req.Username)
	defer func() { metrics.Submissions.WithLabelValues(outcome(err)).Inc() }()

	// Validate input
	if req.Amount.LessThan(s.minAmount) {
		return Submission{}, invalid(ErrAmountTooLow,
			fmt.Sprintf("Amount must not be less than %s.", calculator.Money(s.minAmount, 0)))
	}
	if req.Week != 0 && !s.calendar.InRange(req.Week) {
		return Submission{}, invalid(ErrWeekNotOpen,
			fmt.Sprintf("Week %d is outside the contribution schedule.", req.Week))
	}

	// Re-read without the cache
	mine, err := s.memberRows(ctx, name, true)
	if err != nil {
		return Submission{}, err
	}
	plan := s.calendar.Plan(s.now(), calculator.PaidWeeks(mine))

	week := req.Week
	if week == 0 {
		week = plan.DueWeek
	}
	label := models.WeekLabel(week)
	for _, t := range mine {
		if t.Week == label {
			return Submission{}, invalid(ErrAlreadyPaid, fmt.Sprintf("You already paid for Week %d.", week))
		}
	}

	switch {
	case plan.Complete:
		return Submission{}, invalid(ErrAllPaid, "You have completed all scheduled contributions.")
	case week != plan.DueWeek:
		return Submission{}, invalid(ErrWeekNotOpen,
			fmt.Sprintf("Pay in order. Next required week: Week %d.", plan.DueWeek))
	case !plan.CanSubmit:
		return Submission{}, invalid(ErrWeekNotOpen,
			fmt.Sprintf("Week %d opens on %s.", week, plan.NextOpen.Format(models.DateLayout)))
	}

	// Upload the receipt, if any
	var link string
	if req.Receipt != nil && s.uploader != nil {
		if err := req.Receipt.Validate(); err != nil {
			return Submission{}, invalid(ErrBadReceipt, err.Error())
		}
		link, err = s.uploader.Upload(ctx, name, *req.Receipt)
		if err != nil {
			return Submission{}, fmt.Errorf("failed to upload receipt: %w", err)
		}
	}

	today := s.now()
	txn := models.Transaction{
		Name:        name,
		Amount:      decimal.NewNullDecimal(req.Amount),
		Date:        &today,
		Week:        label,
		WeekNumber:  week,
		ReceiptLink: link,
	}
	if err := s.source.AppendTransaction(ctx, txn); err != nil {
		s.logger.Error("Failed to record contribution", "username", name, "week", week, "error", err)
		return Submission{}, err
	}

	s.logger.Info("Contribution recorded", "username", name, "week", week, "amount", req.Amount.String())
	return Submission{
		Username:    name,
		Week:        week,
		Amount:      req.Amount,
		ReceiptLink: link,
		Message:     fmt.Sprintf("Saved Week %d contribution: %s.", week, calculator.Money(req.Amount, 2)),
	}, nil
}

func (s *ContributionService) memberRows(ctx context.Context, name string, force bool) ([]models.Transaction, error) {
	raw, err := s.source.Transactions(ctx, force)
	if err != nil {
		return nil, err
	}
	return calculator.ForMember(clean.Transactions(raw), name), nil
}

func status(p schedule.Plan) string {
	switch {
	case p.Complete:
		return "You have completed all scheduled contributions."
	case p.CanSubmit:
		return fmt.Sprintf("Next required week: Week %d", p.DueWeek)
	default:
		return fmt.Sprintf("You have already paid through Week %d. Next payment (Week %d) opens on %s",
			p.OpenWeek, p.DueWeek, p.NextOpen.Format(models.DateLayout))
	}
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "rejected"
	default:
		return "error"
	}
}
