package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/report"
	"kaskelas/internal/services"
	"kaskelas/internal/view"
)

type adminData struct {
	Pending  []pendingRow
	Students []core.Student
	Today    string
	Month    string
	Funds    []core.Fund
}

type pendingRow struct {
	Payment core.Payment
	Student core.Student
	Known   bool
}

type shareData struct {
	Link        string
	Message     string
	WhatsAppURL string
	Month       string
	Title       string
}

func (s *Server) adminData(data view.Data) *adminData {
	now := s.now()
	return &adminData{
		Pending:  pendingRows(data),
		Students: core.FilterStudents(data.Students, ""),
		Today:    core.DateOf(now).ISO(),
		Month:    core.MonthOf(now).String(),
		Funds:    core.Funds(),
	}
}

func pendingRows(data view.Data) []pendingRow {
	index := core.StudentIndex(data.Students)
	pending := core.PendingPayments(data.Payments)
	rows := make([]pendingRow, 0, len(pending))
	for _, p := range pending {
		st, ok := index[p.StudentID]
		rows = append(rows, pendingRow{Payment: p, Student: st, Known: ok})
	}
	return rows
}

// fail logs err and answers with its user message. Fragments still refresh
// because a failed action may have written part of its effect.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op, prefix string, err error) {
	status := StatusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Admin action failed", log.FieldOperation, op, log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Admin action refused", log.FieldOperation, op, log.FieldError, err)
	}
	DomainError(prefix, err).TriggerDataChanged().Write(w)
}

func succeed(message string) *HTMXResponseBuilder {
	return NewHTMXResponse().TriggerDataChanged().TriggerSuccessNotification(message)
}

func (s *Server) handlePendingPartial(w http.ResponseWriter, r *http.Request, _ string) {
	s.render(w, r, "pending_list", s.adminData(s.view.Data()))
}

func (s *Server) handleStudentTable(w http.ResponseWriter, r *http.Request, _ string) {
	s.render(w, r, "student_table", s.adminData(s.view.Data()))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, admin string) {
	if _, err := s.payments.Approve(r.Context(), r.PathValue("id"), admin); err != nil {
		s.fail(w, r, log.OpApprove, "Gagal menyetujui pembayaran: ", err)
		return
	}
	succeed("Pembayaran berhasil disetujui.").Write(w)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request, admin string) {
	if _, err := s.payments.Reject(r.Context(), r.PathValue("id"), admin); err != nil {
		s.fail(w, r, log.OpReject, "Gagal menolak pembayaran: ", err)
		return
	}
	succeed("Pembayaran berhasil ditolak.").Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, admin string) {
	p, fail := ParseBodyOrFail(r)
	if fail != nil {
		fail.Write(w)
		return
	}
	in := services.ExpenseInput{
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Fund:        p.Get("fund"),
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		ReceiptURL:  p.Get("receipt_url"),
	}
	if _, err := s.expenses.Add(r.Context(), in, admin); err != nil {
		s.fail(w, r, log.OpCreate, "Gagal menambahkan pengeluaran: ", err)
		return
	}
	succeed("Pengeluaran berhasil ditambahkan.").TriggerFormReset().Write(w)
}

func studentInput(p *RequestBodyParser) services.StudentInput {
	return services.StudentInput{
		Name:   p.Get("name"),
		NIM:    p.Get("nim"),
		Cohort: p.Get("cohort"),
	}
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request, _ string) {
	p, fail := ParseBodyOrFail(r)
	if fail != nil {
		fail.Write(w)
		return
	}
	if _, err := s.students.Create(r.Context(), studentInput(p)); err != nil {
		s.fail(w, r, log.OpCreate, "Gagal menambah mahasiswa: ", err)
		return
	}
	succeed("Mahasiswa berhasil ditambahkan.").TriggerFormReset().TriggerCloseModal().Write(w)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request, _ string) {
	p, fail := ParseBodyOrFail(r)
	if fail != nil {
		fail.Write(w)
		return
	}
	if _, err := s.students.Update(r.Context(), r.PathValue("id"), studentInput(p)); err != nil {
		s.fail(w, r, log.OpUpdate, "Gagal update mahasiswa: ", err)
		return
	}
	succeed("Data mahasiswa berhasil diperbarui.").TriggerCloseModal().Write(w)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request, _ string) {
	if err := s.students.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, "Gagal menghapus mahasiswa: ", err)
		return
	}
	succeed("Mahasiswa dan semua data pembayaran terkait berhasil dihapus.").Write(w)
}

// handleExport streams the month's CSV. HTMX requests are only checked and
// redirected to the plain download so an empty month shows a notification.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, admin string) {
	month, err := core.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		s.fail(w, r, log.OpExport, "", err)
		return
	}

	var buf bytes.Buffer
	if err := report.EncodeCSV(&buf, s.view.Data().Transactions, month); err != nil {
		if errors.Is(err, report.ErrEmptyExport) {
			DomainError("", err).Write(w)
			return
		}
		s.fail(w, r, log.OpExport, "Gagal mengekspor data: ", err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/admin/export?" + url.Values{"month": {month.String()}}.Encode()).Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		log.FieldOperation, log.OpExport,
		log.FieldMonth, month.String(),
		log.FieldUser, admin)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.CSVFilename(month)+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, _ string) {
	month := monthParam(r.URL.Query(), s.now())
	snap := report.BuildSnapshot(s.view.Data().Transactions, month, nil)
	link := report.ShareLink(s.origin(r), "/", month)
	msg := report.ShareMessage(snap, s.cohort, link)
	s.render(w, r, "share_panel", shareData{
		Link:        link,
		Message:     msg,
		WhatsAppURL: report.WhatsAppURL(msg),
		Month:       month.String(),
		Title:       month.Label(),
	})
}
