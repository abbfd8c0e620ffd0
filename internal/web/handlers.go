package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/auth"
	"github.com/mmynk/familyfund/internal/calculator"
	"github.com/mmynk/familyfund/internal/middleware"
	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/receipts"
	"github.com/mmynk/familyfund/internal/service"
	"github.com/mmynk/familyfund/internal/session"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	switch {
	case !sess.Authenticated:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case sess.IsAdmin():
		middleware.Redirect(w, r, "/admin")
	default:
		middleware.Redirect(w, r, "/dashboard")
	}
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated {
		s.index(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", page{Title: "Login"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	id, err := s.Auth.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		s.render(w, r, authStatus(err), "login.html", page{
			Title: "Login",
			Error: service.UserMessage(err),
			Data:  map[string]string{"Username": username},
		})
		return
	}

	sess := session.FromContext(r.Context())
	sess.Persist(id.Username, id.Role)
	s.setFlash(w, service.MsgLoggedIn)
	s.index(w, r)
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup.html", page{Title: "Sign Up"})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	if _, err := s.Auth.SignUp(r.Context(), username, r.PostFormValue("password")); err != nil {
		s.render(w, r, authStatus(err), "signup.html", page{
			Title: "Sign Up",
			Error: service.UserMessage(err),
			Data:  map[string]string{"Username": username},
		})
		return
	}
	s.setFlash(w, service.MsgSignedUp+" Now sign in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.Clear()
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	summary, err := s.Reports.UserDashboard(r.Context(), sess.Username)
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "dashboard.html", page{Title: "Dashboard", Error: service.UserMessage(err)})
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", page{Title: "Dashboard", Data: summary})
}

// submitView is the submit page plus the last attempted amount.
type submitView struct {
	service.ContributionPage
	Amount string
}

func (s *Server) submitPage(w http.ResponseWriter, r *http.Request) {
	s.renderSubmit(w, r, http.StatusOK, "", "")
}

func (s *Server) renderSubmit(w http.ResponseWriter, r *http.Request, status int, errMsg, amount string) {
	sess := session.FromContext(r.Context())
	p, err := s.Contributions.Page(r.Context(), sess.Username)
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "submit.html", page{Title: "Submit Contribution", Error: service.UserMessage(err)})
		return
	}
	if amount == "" {
		amount = p.MinAmount.StringFixed(2)
	}
	s.render(w, r, status, "submit.html", page{
		Title: "Submit Contribution",
		Error: errMsg,
		Data:  submitView{ContributionPage: p, Amount: amount},
	})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	// Validate input
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, receipts.MaxSize+1<<20)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			s.renderSubmit(w, r, http.StatusBadRequest, "Receipt must be 5 MiB or smaller.", "")
			return
		}
	}
	raw := strings.TrimSpace(r.FormValue("amount"))
	amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		s.renderSubmit(w, r, http.StatusUnprocessableEntity, "Enter a valid amount.", raw)
		return
	}
	week, _ := strconv.Atoi(r.FormValue("week"))

	req := service.SubmitRequest{Username: sess.Username, Week: week, Amount: amount}
	if file, header, err := r.FormFile("receipt"); err == nil {
		defer file.Close()
		req.Receipt = &receipts.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}

	sub, err := s.Contributions.Submit(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		s.renderSubmit(w, r, status, service.UserMessage(err), raw)
		return
	}

	s.setFlash(w, sub.Message)
	middleware.Redirect(w, r, "/dashboard")
}

func (s *Server) admin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.Reports.AdminDashboard(r.Context(), adminFilter(q.Get), q.Get("refresh") == "1")
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "admin.html", page{Title: "Admin Dashboard", Error: service.UserMessage(err)})
		return
	}
	s.render(w, r, http.StatusOK, "admin.html", page{Title: "Admin Dashboard", Data: summary})
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rev, err := s.Reports.AdminReview(r.Context(), models.NormalizeName(q.Get("member")), q.Get("refresh") == "1")
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "review.html", page{Title: "Admin Review", Error: service.UserMessage(err)})
		return
	}
	s.render(w, r, http.StatusOK, "review.html", page{Title: "Admin Review", Data: rev})
}

func adminFilter(get func(string) string) calculator.AdminFilter {
	week, _ := strconv.Atoi(get("week"))
	return calculator.AdminFilter{
		Member: models.NormalizeName(get("member")),
		Month:  strings.TrimSpace(get("month")),
		Week:   week,
	}
}

// authStatus maps a failed login or sign-up to an HTTP status.
func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrEmptyCredentials):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUsernameExists):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
