package bookings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/codr1/StaycationHaven/internal/api/apiutil"
	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
)

const (
	bookingsSheet   = "Bookings"
	paymentsSheet   = "Payments"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportWindow    = 30
)

var (
	bookingHeaders = []any{"Reference", "Haven", "Guest", "Email", "Phone", "Guests", "Check-in", "Check-out", "Status", "Total", "Paid", "Balance", "Notes"}
	paymentHeaders = []any{"Booking", "Guest", "Amount", "Method", "Status", "Reference", "Paid at", "Recorded"}
)

// GET /api/admin/bookings/export
func HandleBookingsExport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r) {
		return
	}

	start, end, err := apiutil.DateRangeFromQuery(r, time.Now().UTC(), exportWindow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from := start.Format(apiutil.DateLayout)
	to := end.Format(apiutil.DateLayout)

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	workbook, err := buildWorkbook(ctx, q, from, to)
	if err != nil {
		logger.Error().Err(err).Str("from", from).Str("to", to).Msg("Failed to build bookings export")
		http.Error(w, "Failed to export bookings", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := workbook.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close export workbook")
		}
	}()

	last := end.AddDate(0, 0, -1).Format(apiutil.DateLayout)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings-%s-to-%s.xlsx"`, from, last))
	if err := workbook.Write(w); err != nil {
		logger.Error().Err(err).Msg("Failed to write bookings export")
	}
}

// buildWorkbook lists bookings whose stay touches [from, to) and the
// payments recorded against them.
func buildWorkbook(ctx context.Context, q *dbgen.Queries, from, to string) (*excelize.File, error) {
	rows, err := listRows(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	payments, err := q.ListPayments(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSheetRow(f, bookingsSheet, 1, bookingHeaders); err != nil {
		f.Close()
		return nil, err
	}
	included := make(map[int64]struct{}, len(rows))
	for i, b := range rows {
		included[b.ID] = struct{}{}
		if err := writeSheetRow(f, bookingsSheet, i+2, []any{
			b.Reference, b.HavenName, b.GuestName, b.GuestEmail, b.GuestPhone, b.GuestCount,
			b.CheckIn, b.CheckOut, b.Status, centsToAmount(b.TotalCents), centsToAmount(b.PaidCents), centsToAmount(b.BalanceCents), b.Notes,
		}); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeSheetRow(f, paymentsSheet, 1, paymentHeaders); err != nil {
		f.Close()
		return nil, err
	}
	next := 2
	for _, p := range payments {
		if _, ok := included[p.BookingID]; !ok {
			continue
		}
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.UTC().Format(time.RFC3339)
		}
		if err := writeSheetRow(f, paymentsSheet, next, []any{
			p.BookingReference, p.GuestName, centsToAmount(p.AmountCents), p.Method, p.Status, p.Reference, paidAt, p.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			f.Close()
			return nil, err
		}
		next++
	}

	for _, sheet := range []struct {
		name    string
		lastCol int
	}{{bookingsSheet, len(bookingHeaders)}, {paymentsSheet, len(paymentHeaders)}} {
		lastCell, _ := excelize.CoordinatesToCellName(sheet.lastCol, 1)
		if err := f.SetCellStyle(sheet.name, "A1", lastCell, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
		lastColName, _ := excelize.ColumnNumberToName(sheet.lastCol)
		if err := f.SetColWidth(sheet.name, "A", lastColName, 18); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
