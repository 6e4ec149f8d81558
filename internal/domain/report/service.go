package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"leavedesk/internal/domain/slack"
)

// Store provides the rows the report renders; the slack store already owns
// the same rolling-window query.
type Store interface {
	LeavesInWindow(ctx context.Context, from, to time.Time) ([]slack.SummaryRow, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// LeavesPDF renders the leaves intersecting [from, to) as a PDF document.
func (s *Service) LeavesPDF(ctx context.Context, from, to time.Time) ([]byte, error) {
	rows, err := s.store.LeavesInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Window: %s to %s", from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02")))
	pdf.Ln(10)

	if len(rows) == 0 {
		pdf.Cell(0, 8, "No leave requests in this window.")
	}
	for _, row := range rows {
		span := fmt.Sprintf("%s to %s", row.StartDate.Format("2006-01-02"), row.EndDate.Format("2006-01-02"))
		if row.IsHalfDay && row.Period != nil {
			span = fmt.Sprintf("%s (%s)", row.StartDate.Format("2006-01-02"), *row.Period)
		}
		pdf.Cell(0, 7, fmt.Sprintf("%s (%s): %s, %s [%s]", row.UserName, row.Department, row.LeaveType, span, row.Status))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
