package certificate

import (
	"bytes"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Fields are the values printed on a certificate
type Fields struct {
	RecipientName string `json:"recipient_name"`
	Country       string `json:"country"`
	Amount        string `json:"amount"`    // e.g. "$50.00"
	Region        string `json:"region"`    // e.g. "in Kenya"
	Date          string `json:"date"`      // e.g. "Date: March 3, 2026"
	Reference     string `json:"reference"` // Encoded in the QR stamp
}

// Renderer turns certificate fields into a document
type Renderer interface {
	Render(f Fields) ([]byte, error)
}

// PDFRenderer draws a one-page Letter certificate
type PDFRenderer struct {
	Title string // Heading, e.g. "ECO-DONATE"
}

// NewPDFRenderer returns a renderer with the default heading
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Title: "ECO-DONATE"}
}

// Render builds the PDF
func (r *PDFRenderer) Render(f Fields) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Certificate of Donation", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	w, h := pdf.GetPageSize()

	// border
	pdf.SetDrawColor(51, 128, 179)
	pdf.SetLineWidth(1)
	pdf.Rect(12.7, 12.7, w-25.4, h-25.4, "D")

	center := func(y float64, style string, size float64, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetXY(0, y)
		pdf.CellFormat(w, 10, tr(text), "", 0, "C", false, 0, "")
	}

	pdf.SetTextColor(20, 20, 20)
	center(70, "B", 24, r.Title)
	center(90, "B", 24, "Certificate of Donation")

	center(120, "", 14, "This is to certify that")
	center(133, "B", 16, f.RecipientName)
	center(145, "", 14, f.Country)

	center(170, "", 14, "has generously donated")
	center(183, "B", 16, f.Amount)
	center(200, "", 12, "towards the cause of planting trees and combating climate change")
	center(208, "", 12, f.Region)

	center(235, "I", 12, f.Date)

	if f.Reference != "" {
		png, err := qrcode.Encode(f.Reference, qrcode.Medium, 256)
		if err != nil {
			return nil, err
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("qr", w-50, h-50, 28, 28, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
