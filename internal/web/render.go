package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"

	"github.com/mmynk/familyfund/internal/calculator"
	"github.com/mmynk/familyfund/internal/models"
	"github.com/mmynk/familyfund/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookie = "ff_flash"

// baseFuncs are the helpers that do not depend on the request.
var baseFuncs = template.FuncMap{
	"money":  func(d decimal.Decimal) string { return calculator.Money(d, 2) },
	"money0": func(d decimal.Decimal) string { return calculator.Money(d, 0) },
	"pct":    func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
	"amount": func(t models.Transaction) string {
		if !t.HasAmount() {
			return ""
		}
		return calculator.Money(t.Value(), 2)
	},
	"month": func(m calculator.MonthTotal) string { return m.Label() },
	"year":  func() int { return time.Now().Year() },
	// request-scoped, replaced in render
	"link":        func(string, ...any) string { return "" },
	"tokenFields": func() map[string]string { return nil },
	"csrfField":   func() template.HTML { return "" },
	"current":     func() *session.Session { return nil },
}

// parsePages pairs the layout with each page template.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template)
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t, err := template.New("layout.html").Funcs(baseFuncs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", base, err)
		}
		pages[base] = t
	}
	return pages, nil
}

// page is the data every template receives.
type page struct {
	Title string
	Flash string
	Error string
	Data  any
}

// render executes a page with request-scoped helpers bound.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.internalError(w, fmt.Errorf("unknown template %q", name))
		return
	}
	if p.Flash == "" {
		p.Flash = s.popFlash(w, r)
	}

	sess := session.FromContext(r.Context())
	token := url.Values{}
	if sess != nil {
		token = sess.Token()
	}

	t, err := tmpl.Clone()
	if err != nil {
		s.internalError(w, err)
		return
	}
	t.Funcs(template.FuncMap{
		"link":        func(p string, kv ...any) string { return withToken(p, token, kv...) },
		"tokenFields": func() map[string]string { return flatten(token) },
		"csrfField":   func() template.HTML { return csrf.TemplateField(r) },
		"current":     func() *session.Session { return sess },
	})

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		s.internalError(w, fmt.Errorf("failed to render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.Logger.Error("Internal error", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// setFlash stores a one-shot message for the next page.
func (s *Server) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, s.newFlashCookie(url.QueryEscape(msg), 60))
}

// popFlash reads and clears the flash message.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, s.newFlashCookie("", -1))
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

func (s *Server) newFlashCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// withToken appends the session token and any key/value pairs to p.
func withToken(p string, token url.Values, kv ...any) string {
	u, err := url.Parse(p)
	if err != nil {
		return p
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(fmt.Sprint(kv[i]), fmt.Sprint(kv[i+1]))
	}
	for k, v := range token {
		q[k] = v
	}
	if len(q) == 0 {
		return p
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func flatten(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}
