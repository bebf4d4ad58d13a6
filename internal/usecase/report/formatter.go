// Package report renders the report document and runs the
// fetch, format and deliver pipeline.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"crypto-report/internal/domain/entity"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout formats report dates.
const DateLayout = "2006-01-02"

const (
	noCryptoNews = "No crypto news available."
	noPolicyNews = "No political news available."
)

const reportTemplate = `<html><body>
<h2>Crypto Daily Report - {{.Date}}</h2>
<h3>Market Summary</h3>
<table border="1" cellpadding="5">
<tr><th>Crypto</th><th>Price (USD)</th><th>24h Change (%)</th></tr>
{{- range .Rows}}
{{- if .IsSentinel}}
<tr><td colspan="3">{{.Message}}</td></tr>
{{- else}}
<tr><td>{{.Symbol}}</td><td>${{price .Price}}</td><td>{{percent .Change24h}}%</td></tr>
{{- end}}
{{- end}}
</table>
<h3>Crypto News</h3>
{{template "articles" section .CryptoNews "` + noCryptoNews + `"}}
<h3>Political News</h3>
{{template "articles" section .PolicyNews "` + noPolicyNews + `"}}
</body></html>
{{define "articles"}}
{{- if .Articles}}<ul>
{{- range .Articles}}
<li><a href="{{.Link}}">{{.DisplayTitle}}</a><br><small>{{.Description}}</small></li>
{{- end}}
</ul>
{{- else}}<p>{{.Placeholder}}</p>{{end}}
{{- end}}`

// Input is everything one report is built from.
type Input struct {
	CryptoNews []entity.Article
	PolicyNews []entity.Article
	Rows       []entity.MarketRow
	Date       time.Time
}

type articleSection struct {
	Articles    []entity.Article
	Placeholder string
}

type templateData struct {
	Date       string
	Rows       []entity.MarketRow
	CryptoNews []entity.Article
	PolicyNews []entity.Article
}

// Formatter renders report HTML. It is safe for concurrent use.
type Formatter struct {
	tmpl *template.Template
}

// NewFormatter parses the report template.
func NewFormatter() (*Formatter, error) {
	funcs := template.FuncMap{
		"price":   func(d decimal.Decimal) string { return formatFixed2(d) },
		"percent": func(d decimal.Decimal) string { return formatFixed2(d) },
		"section": func(articles []entity.Article, placeholder string) articleSection {
			return articleSection{Articles: articles, Placeholder: placeholder}
		},
	}

	tmpl, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Formatter{tmpl: tmpl}, nil
}

// Format renders the report. The output depends only on in.
func (f *Formatter) Format(in Input) (string, error) {
	var buf bytes.Buffer
	err := f.tmpl.Execute(&buf, templateData{
		Date:       in.Date.Format(DateLayout),
		Rows:       in.Rows,
		CryptoNews: in.CryptoNews,
		PolicyNews: in.PolicyNews,
	})
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// formatFixed2 renders d with two decimals and thousands separators,
// e.g. 1234.567 -> "1,234.57". message.Printer is not safe for
// concurrent use, so each call gets its own.
func formatFixed2(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f", d.Round(2).InexactFloat64())
}
