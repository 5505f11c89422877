package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
	"github.com/galliconnect/rideshare/internal/utils"
)

// TicketService renders PDF e-tickets for bookings.
type TicketService struct {
	Bookings BookingService
	Loader   func(ctx context.Context, ref string, viewer domain.RequestContext) (models.BookingSummary, error)
}

func (s TicketService) load(ctx context.Context, ref string, viewer domain.RequestContext) (models.BookingSummary, error) {
	if s.Loader != nil {
		return s.Loader(ctx, ref, viewer)
	}
	return s.Bookings.Summary(ctx, ref, viewer)
}

// GenerateETicket returns the PDF bytes and a download filename.
func (s TicketService) GenerateETicket(ctx context.Context, ref string, viewer domain.RequestContext) ([]byte, string, error) {
	b, err := s.load(ctx, ref, viewer)
	if err != nil {
		return nil, "", err
	}
	pdf, name, err := buildETicketPDF(b)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "failed to render e-ticket", Err: err}
	}
	utils.LogEvent(ctx, "docs", "generate_eticket", fmt.Sprintf("ref=%s viewer_id=%d", ref, viewer.UserID))
	return pdf, name, nil
}

func buildETicketPDF(b models.BookingSummary) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "GALLI CONNECT E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID     : %s", safe(b.Reference, "-")),
		fmt.Sprintf("Passenger      : %s", safe(b.PassengerName, "-")),
		fmt.Sprintf("Driver         : %s", safe(b.DriverName, "-")),
		fmt.Sprintf("Route          : %s -> %s", safe(b.RouteInfo.From, "-"), safe(b.RouteInfo.To, "-")),
		fmt.Sprintf("Departure      : %s", safe(b.RouteInfo.DepartureTime, "-")),
		fmt.Sprintf("Seats          : %d", b.Seats),
		fmt.Sprintf("Price per seat : %s", b.CostPerSeat.String()),
		fmt.Sprintf("Total          : %s", b.TotalPrice.String()),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Travel dates:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
	for _, d := range b.Dates {
		label := d
		if wd := utils.WeekdayLabel(d); wd != "" {
			label = d + " (" + wd + ")"
		}
		pdf.Cell(0, 7, "- "+label)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this e-ticket to the driver at pickup. Valid for the seats and dates listed above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ETICKET_%s_%s.pdf", safeFilenamePart(shortRef(b.Reference)), safeFilenamePart(b.PassengerName))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
