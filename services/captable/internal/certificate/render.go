package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

type Company struct {
	Name     string
	Address  string
	Email    string
	Website  string
	Currency string
}

// Data is everything printed on one certificate.
type Data struct {
	Number        string
	HolderName    string
	Shares        int64
	PricePerShare decimal.Decimal
	TotalValue    decimal.Decimal
	IssuedAt      time.Time
	GeneratedAt   time.Time
}

type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Renderer interface {
	Render(ctx context.Context, data Data) (Document, error)
}

func NewRenderer(format string, company Company) (Renderer, error) {
	switch format {
	case FormatPDF, "":
		return NewPDFRenderer(company), nil
	case FormatHTML:
		return NewHTMLRenderer(company), nil
	default:
		return nil, fmt.Errorf("unsupported certificate format %q", format)
	}
}

func Filename(number, ext string) string {
	return "certificate_" + number + "." + ext
}

// view is the display form shared by both renderers.
type view struct {
	Company     Company
	Number      string
	HolderName  string
	Shares      string
	Price       string
	Total       string
	IssuedOn    string
	GeneratedAt string
}

func newView(company Company, data Data) view {
	generated := data.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	return view{
		Company:     company,
		Number:      data.Number,
		HolderName:  data.HolderName,
		Shares:      FormatShares(data.Shares),
		Price:       FormatMoney(data.PricePerShare, company.Currency),
		Total:       FormatMoney(data.TotalValue, company.Currency),
		IssuedOn:    data.IssuedAt.UTC().Format("January 02, 2006"),
		GeneratedAt: generated.UTC().Format("January 02, 2006 at 03:04 PM MST"),
	}
}

const (
	titleText = "SHARE CERTIFICATE"
	ownerText = "This is to certify that the above-named shareholder is the registered owner of the following shares in %s, a company duly incorporated and existing under the laws of the jurisdiction in which it operates."
	termsText = "This certificate is issued in accordance with the company's articles of incorporation and bylaws. The shares represented by this certificate are fully paid and non-assessable."
	footText  = "This certificate is computer-generated and is valid without a physical signature when issued through the company's authorized system."
)
