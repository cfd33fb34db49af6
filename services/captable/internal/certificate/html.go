package certificate

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"strings"
	"sync"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.md
var templatesFS embed.FS

var (
	markdownOnce sync.Once
	markdownConv goldmark.Markdown

	certTemplate = template.Must(template.New("certificate.md").
			Funcs(template.FuncMap{"md": escapeMarkdown}).
			ParseFS(templatesFS, "templates/certificate.md"))
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownConv = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		)
	})
	return markdownConv
}

// HTMLRenderer produces a self-contained HTML page from the markdown template.
type HTMLRenderer struct {
	company Company
}

func NewHTMLRenderer(company Company) *HTMLRenderer {
	return &HTMLRenderer{company: company}
}

type htmlView struct {
	view
	OwnerText  string
	TermsText  string
	FooterText string
}

func (r *HTMLRenderer) Markdown(data Data) (string, error) {
	v := htmlView{
		view:       newView(r.company, data),
		OwnerText:  fmt.Sprintf(ownerText, r.company.Name),
		TermsText:  termsText,
		FooterText: footText,
	}
	var buf bytes.Buffer
	if err := certTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	return buf.String(), nil
}

func (r *HTMLRenderer) Render(ctx context.Context, data Data) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	src, err := r.Markdown(data)
	if err != nil {
		return Document{}, err
	}

	var body bytes.Buffer
	body.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	body.WriteString(html.EscapeString(titleText + " " + data.Number))
	body.WriteString("</title>\n<style>")
	body.WriteString(pageStyle)
	body.WriteString("</style>\n</head>\n<body>\n<div class=\"certificate\">\n")
	if err := markdown().Convert([]byte(src), &body); err != nil {
		return Document{}, fmt.Errorf("render html certificate: %w", err)
	}
	body.WriteString("</div>\n</body>\n</html>\n")

	return Document{
		Filename:    Filename(data.Number, FormatHTML),
		ContentType: "text/html; charset=utf-8",
		Body:        body.Bytes(),
	}, nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`,
	"[", `\[`, "]", `\]`, "|", `\|`, "<", "&lt;", ">", "&gt;",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const pageStyle = `
body { font-family: "Times New Roman", serif; margin: 0; padding: 24px; background: #f8fafc; }
.certificate { max-width: 900px; margin: 0 auto; padding: 40px; background: #fff; border: 8px double #1e3a8a; text-align: center; }
h1 { color: #1e3a8a; margin-bottom: 4px; }
h2 { color: #1e3a8a; letter-spacing: 4px; }
h3 { font-style: italic; font-size: 1.6em; }
table { margin: 16px auto; border-collapse: collapse; min-width: 60%; }
td, th { padding: 6px 12px; border-bottom: 1px solid #e2e8f0; }
em { color: #64748b; font-size: 0.85em; }
`
