package certificate

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

type PDFRenderer struct {
	company Company
}

func NewPDFRenderer(company Company) *PDFRenderer {
	return &PDFRenderer{company: company}
}

func (r *PDFRenderer) Render(ctx context.Context, data Data) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	v := newView(r.company, data)

	pdf := fpdf.New("L", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(titleText+" "+v.Number, true)
	pdf.SetCreator(r.company.Name, true)
	pdf.SetCreationDate(data.GeneratedAt)
	pdf.SetModificationDate(data.GeneratedAt)
	pdf.SetMargins(20, 18, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	pdf.SetDrawColor(30, 58, 138)
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, w-16, h-16, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(11, 11, w-22, h-22, "D")

	content := w - 40
	center := func(style string, size float64, height float64, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.CellFormat(content, height, tr(text), "", 1, "C", false, 0, "")
	}

	pdf.SetTextColor(30, 58, 138)
	center("B", 22, 10, v.Company.Name)
	pdf.SetTextColor(90, 90, 90)
	center("", 9, 5, v.Company.Address)
	center("", 9, 5, "Email: "+v.Company.Email+"   Website: "+v.Company.Website)
	pdf.Ln(4)
	center("B", 10, 6, "Certificate Number: "+v.Number)

	pdf.Ln(2)
	pdf.SetTextColor(30, 58, 138)
	center("B", 28, 14, titleText)

	pdf.SetTextColor(0, 0, 0)
	center("BI", 20, 12, v.HolderName)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(content, 5, tr(fmt.Sprintf(ownerText, v.Company.Name)), "", "C", false)
	pdf.Ln(3)

	rows := [][2]string{
		{"Number of Shares:", v.Shares},
		{"Price per Share:", v.Price},
		{"Total Value:", v.Total},
		{"Issuance Date:", v.IssuedOn},
	}
	left := 20 + content/2 - 60
	for _, row := range rows {
		pdf.SetX(left)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(60, 7, tr(row[0]), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(60, 7, tr(row[1]), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(content, 4.5, tr(termsText), "", "C", false)

	sigY := h - 42
	pdf.SetLineWidth(0.4)
	pdf.SetDrawColor(0, 0, 0)
	for i, title := range []string{"Authorized Signature", "Company Seal"} {
		x := 40 + float64(i)*(w-140)
		pdf.Line(x, sigY, x+60, sigY)
		pdf.SetXY(x, sigY+1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(60, 5, title, "", 0, "C", false, 0, "")
	}

	pdf.SetXY(20, h-28)
	pdf.SetFont("Helvetica", "I", 7.5)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(content, 3.8, tr(footText), "", "C", false)
	pdf.CellFormat(content, 4, tr("Generated on: "+v.GeneratedAt), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render pdf certificate: %w", err)
	}

	return Document{
		Filename:    Filename(data.Number, FormatPDF),
		ContentType: "application/pdf",
		Body:        buf.Bytes(),
	}, nil
}
