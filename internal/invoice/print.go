package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwin275/billing-api/internal/customer"
	"github.com/ashwin275/billing-api/internal/shop"
)

// Renderer produces the printable HTML form of an invoice. Output is a
// pure function of the stored invoice, shop and customer rows, so the same
// invoice always renders to the same bytes.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the built-in print template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("invoice").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"half": func(d decimal.Decimal) decimal.Decimal {
			return d.Div(decimal.NewFromInt(2))
		},
		"add1": func(i int) int { return i + 1 },
	}).Parse(printTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse print template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type printData struct {
	Invoice  Invoice
	Shop     shop.Shop
	Customer *customer.Customer
	IsGST    bool
	Date     *time.Time
}

// Render writes the invoice as a standalone HTML document.
func (r *Renderer) Render(inv Invoice, sh shop.Shop, cust *customer.Customer) ([]byte, error) {
	date := inv.IssuedAt
	if date == nil {
		created := inv.CreatedAt
		date = &created
	}
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, printData{
		Invoice:  inv,
		Shop:     sh,
		Customer: cust,
		IsGST:    inv.BillType == "GST",
		Date:     date,
	})
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

const printTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice {{.Invoice.Number}}</title>
<style>
body { font-family: Arial, sans-serif; font-size: 12px; color: #111; margin: 24px; }
.header { display: flex; justify-content: space-between; border-bottom: 2px solid #111; padding-bottom: 8px; }
.shop-name { font-size: 18px; font-weight: bold; }
.muted { color: #555; }
.meta { margin-top: 12px; display: flex; justify-content: space-between; }
table.items { width: 100%; border-collapse: collapse; margin-top: 16px; }
table.items th, table.items td { border: 1px solid #999; padding: 4px 6px; text-align: right; }
table.items th { background: #eee; }
table.items td.l, table.items th.l { text-align: left; }
.totals { margin-top: 12px; margin-left: auto; width: 280px; }
.totals td { padding: 2px 6px; }
.totals .grand { font-weight: bold; border-top: 1px solid #111; font-size: 14px; }
.void-mark { color: #b00; font-size: 20px; font-weight: bold; text-transform: uppercase; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<div class="header">
  <div>
    <div class="shop-name">{{.Shop.Name}}</div>
    {{- with .Shop.Address}}<div class="muted">{{.}}</div>{{end}}
    {{- with .Shop.Phone}}<div class="muted">Phone: {{.}}</div>{{end}}
    {{- if .IsGST}}{{with .Shop.GSTIN}}<div class="muted">GSTIN: {{.}}</div>{{end}}{{end}}
  </div>
  <div style="text-align:right">
    <div style="font-size:16px;font-weight:bold">{{if .IsGST}}TAX INVOICE{{else}}INVOICE{{end}}</div>
    <div>No: {{.Invoice.Number}}</div>
    <div>Date: {{date .Date}}</div>
    {{- if eq .Invoice.Status "void"}}<div class="void-mark">Void</div>{{end}}
  </div>
</div>

<div class="meta">
  <div>
    <b>Billed To</b><br>
    {{- if .Customer}}
    {{.Customer.Name}}<br>
    {{- with .Customer.Address}}{{.}}<br>{{end}}
    {{- with .Customer.Phone}}Phone: {{.}}<br>{{end}}
    {{- if $.IsGST}}{{with .Customer.GSTIN}}GSTIN: {{.}}<br>{{end}}{{end}}
    {{- else}}
    Walk-in customer
    {{- end}}
  </div>
  <div style="text-align:right">
    Sale: {{.Invoice.SaleType}}<br>
    Payment: {{.Invoice.PaymentStatus}}{{with .Invoice.PaymentMode}} ({{.}}){{end}}
  </div>
</div>

<table class="items">
  <tr>
    <th class="l">#</th>
    <th class="l">Item</th>
    {{- if .IsGST}}<th class="l">HSN</th>{{end}}
    <th>Qty</th>
    <th>Rate</th>
    <th>Discount</th>
    {{- if .IsGST}}
    <th>Taxable</th>
    <th>CGST</th>
    <th>SGST</th>
    {{- end}}
    <th>Total</th>
  </tr>
  {{- range $i, $it := .Invoice.Items}}
  <tr>
    <td class="l">{{add1 $i}}</td>
    <td class="l">{{$it.ProductName}}</td>
    {{- if $.IsGST}}<td class="l">{{with $it.HSNCode}}{{.}}{{end}}</td>{{end}}
    <td>{{$it.Quantity}} {{$it.Unit}}</td>
    <td>{{money $it.Rate}}</td>
    <td>{{money $it.DiscountAmount}}</td>
    {{- if $.IsGST}}
    <td>{{money $it.TaxableAmount}}</td>
    <td>{{money (half $it.TaxAmount)}} ({{half $it.TaxRate}}%)</td>
    <td>{{money (half $it.TaxAmount)}} ({{half $it.TaxRate}}%)</td>
    {{- end}}
    <td>{{money $it.LineTotal}}</td>
  </tr>
  {{- end}}
</table>

<table class="totals">
  <tr><td>Subtotal</td><td style="text-align:right">{{money .Invoice.Subtotal}}</td></tr>
  {{- if not (.Invoice.DiscountTotal.IsZero)}}
  <tr><td>Item discounts</td><td style="text-align:right">-{{money .Invoice.DiscountTotal}}</td></tr>
  {{- end}}
  {{- if not (.Invoice.AdditionalDiscount.IsZero)}}
  <tr><td>Additional discount</td><td style="text-align:right">-{{money .Invoice.AdditionalDiscount}}</td></tr>
  {{- end}}
  {{- if .IsGST}}
  <tr><td>CGST</td><td style="text-align:right">{{money (half .Invoice.TaxTotal)}}</td></tr>
  <tr><td>SGST</td><td style="text-align:right">{{money (half .Invoice.TaxTotal)}}</td></tr>
  {{- end}}
  {{- if not (.Invoice.RoundOff.IsZero)}}
  <tr><td>Round off</td><td style="text-align:right">{{money .Invoice.RoundOff}}</td></tr>
  {{- end}}
  <tr class="grand"><td>Grand Total</td><td style="text-align:right">{{money .Invoice.GrandTotal}}</td></tr>
</table>

{{- with .Invoice.Notes}}
<p class="muted">{{.}}</p>
{{- end}}
</body>
</html>
`
