package web

import (
	"encoding/csv"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/familyfund/internal/models"
)

// export serves one of the admin CSV downloads.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()
	kind := chi.URLParam(r, "kind")

	var (
		filename string
		rows     [][]string
	)
	switch kind {
	case "recent":
		summary, err := s.Reports.AdminDashboard(ctx, adminFilter(q.Get), false)
		if err != nil {
			s.internalError(w, err)
			return
		}
		filename = "recent_submissions.csv"
		rows = transactionRows(summary.Recent)

	case "log":
		rev, err := s.Reports.AdminReview(ctx, "", false)
		if err != nil {
			s.internalError(w, err)
			return
		}
		filename = "contribution_log.csv"
		rows = transactionRows(rev.Log)

	case "missing":
		rev, err := s.Reports.AdminReview(ctx, "", false)
		if err != nil {
			s.internalError(w, err)
			return
		}
		filename = "missing_by_member.csv"
		rows = [][]string{{"NAME", "SUBMITTED", "MISSING", "MISSING WEEKS"}}
		for _, p := range rev.Progress {
			rows = append(rows, []string{p.Name, strconv.Itoa(p.Submitted), strconv.Itoa(p.Missing), joinWeeks(p.MissingWeeks)})
		}

	case "member-missing":
		rev, err := s.Reports.AdminReview(ctx, models.NormalizeName(q.Get("member")), false)
		if err != nil {
			s.internalError(w, err)
			return
		}
		rows = [][]string{{"NAME", "WEEK"}}
		name := "member"
		if rev.Detail != nil {
			name = rev.Detail.Name
			for _, wk := range rev.Detail.MissingWeeks {
				rows = append(rows, []string{name, models.WeekLabel(wk)})
			}
		}
		filename = strings.ToLower(strings.ReplaceAll(name, " ", "_")) + "_missing_weeks.csv"

	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(filename))
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		s.Logger.Error("Failed to write CSV", "kind", kind, "error", err)
	}
}

// attachment builds a Content-Disposition value with filename quoted.
func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

func transactionRows(txns []models.Transaction) [][]string {
	rows := [][]string{append([]string(nil), models.TransactionColumns...)}
	for _, t := range txns {
		amount := ""
		if t.HasAmount() {
			amount = t.Value().StringFixed(2)
		}
		rows = append(rows, []string{t.Name, amount, t.DateString(), t.Week, t.ReceiptLink})
	}
	return rows
}

func joinWeeks(weeks []int) string {
	parts := make([]string, len(weeks))
	for i, w := range weeks {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, ", ")
}
