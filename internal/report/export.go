package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SalesCSV streams the daily sales summary as CSV.
func SalesCSV(w io.Writer, rows []SalesByDay) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"day", "invoices", "gross_total", "discount_total", "tax_total", "sales_total"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.Day.Format("2006-01-02"),
			fmt.Sprintf("%d", row.Invoices),
			row.GrossTotal.StringFixed(2),
			row.DiscountTotal.StringFixed(2),
			row.TaxTotal.StringFixed(2),
			row.SalesTotal.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TaxCSV streams the GST bracket breakdown as CSV.
func TaxCSV(w io.Writer, rows []TaxBracket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tax_rate", "taxable_amount", "cgst_amount", "sgst_amount", "tax_amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.TaxRate.String(),
			row.TaxableAmount.StringFixed(2),
			row.CGSTAmount.StringFixed(2),
			row.SGSTAmount.StringFixed(2),
			row.TaxAmount.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SalesXLSX writes the daily sales summary as an Excel workbook.
func SalesXLSX(w io.Writer, rows []SalesByDay) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sales"
	f.SetSheetName("Sheet1", sheet)
	header := []any{"Day", "Invoices", "Gross Total", "Discount Total", "Tax Total", "Sales Total"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.Day.Format("2006-01-02"),
			row.Invoices,
			row.GrossTotal.StringFixed(2),
			row.DiscountTotal.StringFixed(2),
			row.TaxTotal.StringFixed(2),
			row.SalesTotal.StringFixed(2),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// TaxXLSX writes the GST bracket breakdown as an Excel workbook.
func TaxXLSX(w io.Writer, rows []TaxBracket) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tax"
	f.SetSheetName("Sheet1", sheet)
	header := []any{"Tax Rate %", "Taxable Amount", "CGST", "SGST", "Total Tax"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.TaxRate.String(),
			row.TaxableAmount.StringFixed(2),
			row.CGSTAmount.StringFixed(2),
			row.SGSTAmount.StringFixed(2),
			row.TaxAmount.StringFixed(2),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
