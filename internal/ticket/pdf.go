package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFData carries everything printed on a ticket.
type PDFData struct {
	TicketID        int64
	Token           string
	EventTitle      string
	EventLocation   string
	ScheduleDate    time.Time
	ParticipantName string
	Email           string
	Status          string
}

// PDF renders a printable A4 ticket with the QR code centered up top
// and the registration details below it.
func PDF(data PDFData) ([]byte, error) {
	png, err := QRPNG(data.Token, QRSize)
	if err != nil {
		return nil, err
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	imgName := fmt.Sprintf("qr_%d", data.TicketID)
	doc.RegisterImageOptionsReader(imgName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))

	const qrSide = 100.0
	qrX := (210.0 - qrSide) / 2
	doc.ImageOptions(imgName, qrX, 20, qrSide, qrSide, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	doc.SetY(130)
	doc.SetFont("Arial", "B", 18)
	doc.CellFormat(0, 10, data.EventTitle, "", 1, "C", false, 0, "")

	doc.SetFont("Arial", "", 12)
	doc.CellFormat(0, 8, data.ScheduleDate.Format("Monday, 2 January 2006 15:04"), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 8, data.EventLocation, "", 1, "C", false, 0, "")

	doc.Ln(6)
	doc.SetFont("Arial", "B", 12)
	doc.CellFormat(0, 8, data.ParticipantName, "", 1, "C", false, 0, "")
	doc.SetFont("Arial", "", 11)
	doc.CellFormat(0, 6, data.Email, "", 1, "C", false, 0, "")

	doc.Ln(6)
	doc.SetFont("Arial", "", 10)
	doc.CellFormat(0, 6, fmt.Sprintf("Ticket #%d", data.TicketID), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 6, "Present this QR code at the entrance.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
