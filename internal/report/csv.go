package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"kaskelas/internal/core"
)

const bom = "\ufeff"

// Header is the first CSV row and the Sheets ledger header.
var Header = []string{
	"id", "tanggal_iso", "tipe", "kategori", "sumber_dana",
	"deskripsi", "jumlah", "ref_payment", "created_by", "created_at",
}

// ErrEmptyExport is returned when no transaction falls in the export month.
var ErrEmptyExport = &core.ValidationError{
	Field:  "month",
	Reason: "Tidak ada transaksi di bulan yang dipilih untuk diekspor.",
}

// CSVFilename names the download for month.
func CSVFilename(month core.Month) string {
	return "transactions_" + month.String() + ".csv"
}

// LedgerRow flattens t into the export column order, unquoted.
func LedgerRow(t core.Transaction) []string {
	return []string{
		t.ID,
		t.Date.ISO(),
		string(t.Type),
		t.Category,
		string(t.Fund),
		t.Description,
		strconv.FormatInt(t.Amount.Rupiah, 10),
		core.Deref(t.PaymentRef),
		core.Deref(t.CreatedBy),
		t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// LedgerRows returns Header followed by one row per transaction.
func LedgerRows(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, t := range txs {
		rows = append(rows, LedgerRow(t))
	}
	return rows
}

// EncodeCSV writes the transactions of month as a BOM-prefixed CSV.
// Category and description are always quoted with inner quotes doubled;
// any other field is quoted when it holds a comma, quote or line break.
func EncodeCSV(w io.Writer, txs []core.Transaction, month core.Month) error {
	rows := FilterMonth(txs, month)
	if len(rows) == 0 {
		return ErrEmptyExport
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(bom)
	bw.WriteString(strings.Join(Header, ","))
	for _, t := range rows {
		fields := LedgerRow(t)
		for i, f := range fields {
			if i == 3 || i == 5 || strings.ContainsAny(f, ",\"\r\n") {
				fields[i] = quote(f)
			}
		}
		bw.WriteString("\n")
		bw.WriteString(strings.Join(fields, ","))
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
