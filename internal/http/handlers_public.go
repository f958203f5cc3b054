package http

import (
	"math"
	"net/http"
	"time"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/report"
	"kaskelas/internal/session"
	"kaskelas/internal/view"
)

type pageData struct {
	Cohort    string
	Admin     bool
	AdminUser string
	Loading   bool
	View      view.View
	Dashboard *dashboardData
	Snapshot  *snapshotData
	Panel     *adminData
	Login     loginData
}

type dashboardData struct {
	Loading  bool
	Summary  core.DashboardSummary
	Students []core.Student
	Query    string
}

type studentResults struct {
	Students []core.Student
	Query    string
}

type studentDetail struct {
	Student  core.Student
	Payments []core.Payment
	Total    int64
}

type fundFilter struct {
	Label   string
	Page    string // full page URL for history
	Partial string // fragment URL
	Active  bool
}

type snapshotData struct {
	Snapshot    report.Snapshot
	Title       string
	Self        string // fragment URL of the active filter
	FilterLabel string
	Filters     []fundFilter
	WhatsAppURL string
}

type loginData struct {
	Error    string
	Locked   bool
	Attempts int
	Minutes  int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := view.Parse(r.URL.Query())
	data := s.view.Data()

	page := pageData{
		Cohort:  s.cohort,
		Loading: !s.view.Ready(),
		View:    v,
	}
	if _, sess := s.currentSession(r); sess != nil {
		page.Admin = sess.IsAdmin()
		page.AdminUser = sess.User()
		if wait := sess.LockedFor(s.now()); wait > 0 {
			page.Login = s.lockedLogin(wait)
		}
	}

	switch {
	case v.Name == view.Snapshot:
		page.Snapshot = s.snapshotData(r, data.Transactions, v.Month, v.Fund)
	case page.Admin:
		page.Panel = s.adminData(data)
	default:
		page.Dashboard = s.dashboardData(data, page.Loading)
	}
	s.render(w, r, "index", page)
}

func (s *Server) dashboardData(data view.Data, loading bool) *dashboardData {
	return &dashboardData{
		Loading:  loading,
		Summary:  core.Summarize(data.Transactions, s.now()),
		Students: core.FilterStudents(data.Students, ""),
	}
}

func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard_stats", s.dashboardData(s.view.Data(), !s.view.Ready()))
}

func (s *Server) handleStudentSearch(w http.ResponseWriter, r *http.Request) {
	q := sanitizeInput(r.URL.Query().Get("q"))
	s.render(w, r, "student_results", studentResults{
		Students: core.FilterStudents(s.view.Data().Students, q),
		Query:    q,
	})
}

func (s *Server) handleStudentDetail(w http.ResponseWriter, r *http.Request) {
	data := s.view.Data()
	st, ok := core.StudentIndex(data.Students)[r.PathValue("id")]
	if !ok {
		NotFoundError("Mahasiswa tidak ditemukan.").Write(w)
		return
	}
	payments := core.StudentPayments(data.Payments, st.ID)
	s.render(w, r, "student_detail", studentDetail{
		Student:  st,
		Payments: payments,
		Total:    core.TotalPaid(payments),
	})
}

func (s *Server) handleSnapshotPartial(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := core.ParseMonth(q.Get("month"))
	if err != nil {
		DomainError("", err).Write(w)
		return
	}
	fund := view.ParseFundFilter(q.Get("fund"))
	s.render(w, r, "snapshot_panel", s.snapshotData(r, s.view.Data().Transactions, month, fund))
}

func (s *Server) snapshotData(r *http.Request, txs []core.Transaction, month core.Month, fund *core.Fund) *snapshotData {
	snap := report.BuildSnapshot(txs, month, fund)
	link := report.ShareLink(s.origin(r), "/", month)

	filters := make([]fundFilter, 0, 3)
	options := append([]*core.Fund{nil}, fundPtrs()...)
	for _, f := range options {
		v := view.View{Name: view.Snapshot, Month: month, Fund: f}
		label := "Semua"
		if f != nil {
			label = f.Label()
		}
		q := v.Query()
		q.Set("fund", view.FundParam(f))
		filters = append(filters, fundFilter{
			Label:   label,
			Page:    "/?" + q.Encode(),
			Partial: "/ui/snapshot?" + q.Encode(),
			Active:  sameFund(f, fund),
		})
	}

	self := ""
	for _, f := range filters {
		if f.Active {
			self = f.Partial
		}
	}
	return &snapshotData{
		Snapshot:    snap,
		Title:       month.Label(),
		Self:        self,
		FilterLabel: report.FundFilterLabel(fund),
		Filters:     filters,
		WhatsAppURL: report.WhatsAppURL(report.ShareMessage(snap, s.cohort, link)),
	}
}

func fundPtrs() []*core.Fund {
	funds := core.Funds()
	out := make([]*core.Fund, len(funds))
	for i := range funds {
		out[i] = &funds[i]
	}
	return out
}

func sameFund(a, b *core.Fund) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Server) lockedLogin(wait time.Duration) loginData {
	return loginData{
		Locked:   true,
		Attempts: s.policy.MaxAttempts,
		Minutes:  int(math.Ceil(wait.Minutes())),
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, fail := ParseBodyOrFail(r)
	if fail != nil {
		fail.Write(w)
		return
	}
	sess := s.ensureSession(w, r)
	logger := log.FromContext(r.Context())

	err := sess.Login(p.Get("username"), p.Get("password"), s.now())
	if err == nil {
		logger.InfoContext(r.Context(), "Admin logged in",
			log.FieldUser, sess.User(),
			log.FieldOperation, log.OpLogin)
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}

	le, ok := err.(*session.LoginError)
	if !ok {
		InternalServerError(core.UserMessage(err)).Write(w)
		return
	}
	logger.WarnContext(r.Context(), "Admin login failed",
		log.FieldOperation, log.OpLogin,
		"locked", le.Locked(),
		"remaining", le.Remaining)

	data := loginData{Error: le.Error()}
	if le.Locked() {
		data = s.lockedLogin(le.RetryIn)
	}
	body, rerr := s.renderString("login_panel", data)
	if rerr != nil {
		InternalServerError("Gagal menampilkan halaman.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, sess := s.currentSession(r); sess != nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Admin logged out", log.FieldUser, sess.User())
		sess.Logout()
	}
	NewHTMXResponse().Redirect("/").Write(w)
}
