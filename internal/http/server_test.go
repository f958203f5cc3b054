package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/notify"
	"kaskelas/internal/session"
	"kaskelas/internal/store"
	"kaskelas/internal/store/memory"
	"kaskelas/internal/view"
)

const testPassword = "rahasia-kas"

func quietLogger() *log.Logger {
	return log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fixture struct {
	srv     *Server
	store   store.Store
	view    *view.Controller
	student core.Student
	payment core.Payment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := quietLogger()

	mem := memory.New()
	st, err := mem.CreateStudent(ctx, core.Student{Name: "Ahmad Fauzi", NIM: "19001", Cohort: core.DefaultCohort})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	p, err := mem.CreatePayment(ctx, core.Payment{
		StudentID: st.ID,
		Amount:    core.Money{Rupiah: 50000},
		Date:      core.NewDate(2024, 3, 5),
		Period:    core.Month{Year: 2024, Month: time.March},
		Status:    core.StatusPending,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	hub := notify.NewHub()
	t.Cleanup(hub.Close)
	s := store.NewNotifying(mem, hub)
	vc := view.NewController(s, hub, logger)
	if err := vc.Start(ctx); err != nil {
		t.Fatalf("start view: %v", err)
	}
	t.Cleanup(vc.Stop)

	hash, err := session.HashPassword(testPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds, err := session.NewCredentials("admin", hash)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	policy := session.Policy{MaxAttempts: 3, Lockout: 5 * time.Minute}

	srv, err := NewServer(":0", Deps{
		Store:    s,
		View:     vc,
		Sessions: session.NewManager(creds, policy, time.Hour, logger),
		Policy:   policy,
		Cohort:   "PKU 19",
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &fixture{srv: srv, store: s, view: vc, student: st, payment: p}
}

func (f *fixture) do(t *testing.T, method, target, body string, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/login", "username=admin&password="+testPassword, nil, nil)
	if rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != session.CookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	return cookies
}

func TestIndexDashboard(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/", "", nil, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Cash Flow Mahasiswa PKU 19", "Total Saldo (Gabungan)", "Status Pembayaran Mahasiswa", "Ahmad Fauzi", "Masuk Admin"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("middleware headers missing: %v", rr.Header())
	}
}

func TestIndexSnapshot(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.CreateTransaction(context.Background(), core.Transaction{
		Date: core.NewDate(2024, 3, 10), Type: core.Expense, Category: "Konsumsi",
		Fund: core.FundKas, Description: "Snack rapat", Amount: core.Money{Rupiah: 20000},
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(f.view.Data().Transactions) == 1 })

	rr := f.do(t, http.MethodGet, "/?view=snapshot&month=2024-03&fund=kas", "", nil, nil)
	body := rr.Body.String()
	for _, want := range []string{"Snapshot Keuangan: Maret 2024", "Uang Kas", "Snack rapat", "Detail Transaksi (1)", "api.whatsapp.com"} {
		if !strings.Contains(body, want) {
			t.Errorf("snapshot missing %q", want)
		}
	}

	rr = f.do(t, http.MethodGet, "/ui/snapshot?month=2024-03&fund=donasi", "", nil, nil)
	if !strings.Contains(rr.Body.String(), "Tidak ada transaksi yang cocok dengan filter.") {
		t.Errorf("donasi filter should be empty: %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/ui/snapshot?month=maret", "", nil, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid month status = %d", rr.Code)
	}
}

func TestStudentSearchAndDetail(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/ui/students?q=1900", "", nil, nil)
	if !strings.Contains(rr.Body.String(), "Ahmad Fauzi") {
		t.Errorf("search by NIM failed: %s", rr.Body.String())
	}
	rr = f.do(t, http.MethodGet, "/ui/students?q=zzz", "", nil, nil)
	if !strings.Contains(rr.Body.String(), "Mahasiswa tidak ditemukan.") {
		t.Errorf("expected empty result: %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/ui/students/"+f.student.ID, "", nil, nil)
	body := rr.Body.String()
	for _, want := range []string{"Total Terbayar:", "Rp 0", "Maret 2024", "Pending"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail missing %q: %s", want, body)
		}
	}

	rr = f.do(t, http.MethodGet, "/ui/students/unknown", "", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown student status = %d", rr.Code)
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/admin/payments/" + f.payment.ID + "/approve"},
		{http.MethodPost, "/admin/expenses"},
		{http.MethodGet, "/admin/export?month=2024-03"},
	} {
		rr := f.do(t, tc.method, tc.path, "", nil, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestLoginLockout(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/login", "username=admin&password=salah", nil, nil)
	if !strings.Contains(rr.Body.String(), "Sisa percobaan: 2") {
		t.Fatalf("first failure: %s", rr.Body.String())
	}
	cookies := rr.Result().Cookies()

	f.do(t, http.MethodPost, "/login", "username=admin&password=salah", cookies, nil)
	rr = f.do(t, http.MethodPost, "/login", "username=admin&password=salah", cookies, nil)
	if !strings.Contains(rr.Body.String(), "Login Diblokir") || !strings.Contains(rr.Body.String(), "sebanyak 3 kali") {
		t.Fatalf("expected lockout: %s", rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/login", "username=admin&password="+testPassword, cookies, nil)
	if rr.Header().Get("HX-Redirect") != "" || !strings.Contains(rr.Body.String(), "Login Diblokir") {
		t.Fatal("correct password accepted while locked")
	}

	rr = f.do(t, http.MethodGet, "/", "", cookies, nil)
	if !strings.Contains(rr.Body.String(), "data-autoopen") {
		t.Error("lockout dialog not opened on page load")
	}
}

func TestApproveFlow(t *testing.T) {
	f := newFixture(t)
	cookies := f.login(t)

	rr := f.do(t, http.MethodGet, "/", "", cookies, nil)
	body := rr.Body.String()
	for _, want := range []string{"Logout Admin", "Validasi Pembayaran", "Manajemen Mahasiswa", "/admin/payments/" + f.payment.ID + "/approve"} {
		if !strings.Contains(body, want) {
			t.Errorf("admin panel missing %q", want)
		}
	}

	rr = f.do(t, http.MethodPost, "/admin/payments/"+f.payment.ID+"/approve", "", cookies, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, TriggerDataChanged) || !strings.Contains(trigger, "Pembayaran berhasil disetujui.") {
		t.Fatalf("HX-Trigger = %s", trigger)
	}

	waitFor(t, func() bool { return len(f.view.Data().Transactions) == 1 })
	tx := f.view.Data().Transactions[0]
	if tx.Description != "Pembayaran Ahmad Fauzi bulan Maret 2024" || core.Deref(tx.CreatedBy) != "admin" {
		t.Fatalf("unexpected ledger entry: %+v", tx)
	}

	rr = f.do(t, http.MethodPost, "/admin/payments/"+f.payment.ID+"/approve", "", cookies, nil)
	if rr.Code != http.StatusConflict || !strings.Contains(rr.Body.String(), "Gagal menyetujui pembayaran: ") {
		t.Fatalf("second approve: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/admin/payments/missing/reject", "", cookies, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("reject unknown: %d", rr.Code)
	}
}

func TestCrossSiteAdminRequestRefused(t *testing.T) {
	f := newFixture(t)
	cookies := f.login(t)
	rr := f.do(t, http.MethodPost, "/admin/payments/"+f.payment.ID+"/reject", "", cookies,
		map[string]string{"Origin": "https://evil.example"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
	p, err := f.store.GetPayment(context.Background(), f.payment.ID)
	if err != nil || p.Status != core.StatusPending {
		t.Fatalf("payment changed: %+v %v", p, err)
	}
}

func TestAddExpense(t *testing.T) {
	f := newFixture(t)
	cookies := f.login(t)

	rr := f.do(t, http.MethodPost, "/admin/expenses", "date=2024-03-12&category=Konsumsi&fund=kas&description=Snack&amount=abc", cookies, nil)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Gagal menambahkan pengeluaran: ") {
		t.Fatalf("invalid amount: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/admin/expenses", "date=2024-03-12&category=Konsumsi&fund=kas&description=Snack&amount=25000", cookies, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), "form:reset") {
		t.Fatalf("add expense: %d %s", rr.Code, rr.Header().Get("HX-Trigger"))
	}
	waitFor(t, func() bool { return len(f.view.Data().Transactions) == 1 })
	if got := f.view.Data().Transactions[0]; got.Type != core.Expense || got.Amount.Rupiah != 25000 {
		t.Fatalf("unexpected expense: %+v", got)
	}
}

func TestStudentManagement(t *testing.T) {
	f := newFixture(t)
	cookies := f.login(t)

	rr := f.do(t, http.MethodPost, "/admin/students", "name=Budi&nim=19001&cohort=PKU+19", cookies, nil)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Gagal menambah mahasiswa: ") {
		t.Fatalf("duplicate NIM: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/admin/students/"+f.student.ID, "name=Ahmad+F.&nim=19001&cohort=PKU+19", cookies, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/admin/students/"+f.student.ID+"/delete", "", cookies, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), "semua data pembayaran terkait berhasil dihapus") {
		t.Fatalf("delete: %d %s", rr.Code, rr.Header().Get("HX-Trigger"))
	}
	waitFor(t, func() bool {
		d := f.view.Data()
		return len(d.Students) == 0 && len(d.Payments) == 0
	})
}

func TestExportAndShare(t *testing.T) {
	f := newFixture(t)
	cookies := f.login(t)

	rr := f.do(t, http.MethodGet, "/admin/export?month=2024-03", "", cookies, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty export status = %d", rr.Code)
	}

	f.do(t, http.MethodPost, "/admin/payments/"+f.payment.ID+"/approve", "", cookies, nil)
	waitFor(t, func() bool { return len(f.view.Data().Transactions) == 1 })

	rr = f.do(t, http.MethodGet, "/admin/export?month=2024-03", "", cookies, map[string]string{"HX-Request": "true"})
	if rr.Header().Get("HX-Redirect") != "/admin/export?month=2024-03" {
		t.Fatalf("htmx export redirect = %q", rr.Header().Get("HX-Redirect"))
	}

	rr = f.do(t, http.MethodGet, "/admin/export?month=2024-03", "", cookies, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="transactions_2024-03.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "﻿id,tanggal_iso,tipe") {
		t.Errorf("csv = %q", rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/admin/share?month=2024-03", "", cookies, nil)
	body := rr.Body.String()
	for _, want := range []string{"Salin Link", "http://example.com/?view=snapshot&amp;month=2024-03", "api.whatsapp.com/send?text="} {
		if !strings.Contains(body, want) {
			t.Errorf("share panel missing %q: %s", want, body)
		}
	}
}

func TestShareUsesPublicBaseURL(t *testing.T) {
	f := newFixture(t)
	f.srv.publicBaseURL = "https://kas.example.org/"
	cookies := f.login(t)
	rr := f.do(t, http.MethodGet, "/admin/share?month=2024-03", "", cookies, nil)
	if !strings.Contains(rr.Body.String(), "https://kas.example.org/?view=snapshot") {
		t.Fatalf("share link ignores public base URL: %s", rr.Body.String())
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/healthz", "", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/readyz", "", nil, nil)
	var ready struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &ready); err != nil || rr.Code != http.StatusOK || ready.Status != "ready" {
		t.Fatalf("readyz = %d %s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodGet, "/metrics", "", nil, nil)
	for _, want := range []string{"http_requests_total", `ledger_records{collection="students"} 1`, "websocket_clients 0"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	f := newFixture(t)
	f.srv.ready = func(context.Context) error { return context.DeadlineExceeded }
	rr := f.do(t, http.MethodGet, "/readyz", "", nil, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rr.Code)
	}
}

func TestWebsocketFeedPushesChanges(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return f.srv.feed.Clients() == 1 })

	if _, err := f.store.CreateStudent(context.Background(), core.Student{Name: "Budi", NIM: "19002", Cohort: "PKU 19"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg feedMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "changed" || msg.LoadedAt.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
