package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary  = "Summary"
	SheetProducts = "Products"
	SheetWaiters  = "Waiters"
	SheetOrders   = "Orders"
)

// Export writes the summary as an xlsx workbook.
func Export(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetProducts, SheetWaiters, SheetOrders} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	summary := [][]interface{}{
		{"Period", string(s.Range.Period)},
		{"From", s.Range.From.Format(dateLayout)},
		{"To", s.Range.To.AddDate(0, 0, -1).Format(dateLayout)},
		{"Revenue", s.Revenue.InexactFloat64()},
		{"Orders", s.Orders},
		{"Average ticket", s.AverageTicket.InexactFloat64()},
		{"Opening float", s.OpeningTotal.InexactFloat64()},
		{"Cash sales", s.CashSales.InexactFloat64()},
		{"Expected cash", s.ExpectedCash.InexactFloat64()},
	}
	for method, total := range s.ByMethod {
		summary = append(summary, []interface{}{"Revenue " + method, total.InexactFloat64()})
	}
	if err := writeRows(f, SheetSummary, nil, summary); err != nil {
		return nil, err
	}

	products := make([][]interface{}, 0, len(s.Products))
	for _, p := range s.Products {
		products = append(products, []interface{}{p.Name, p.Quantity, p.Revenue.InexactFloat64()})
	}
	if err := writeRows(f, SheetProducts, []interface{}{"Product", "Quantity", "Revenue"}, products); err != nil {
		return nil, err
	}

	waiters := make([][]interface{}, 0, len(s.Waiters))
	for _, w := range s.Waiters {
		waiters = append(waiters, []interface{}{w.Name, w.Orders, w.Total.InexactFloat64()})
	}
	if err := writeRows(f, SheetWaiters, []interface{}{"Waiter", "Orders", "Total"}, waiters); err != nil {
		return nil, err
	}

	orders := make([][]interface{}, 0, len(s.Detail))
	for _, o := range s.Detail {
		orders = append(orders, []interface{}{o.DailyNumber, o.CreatedAt, o.TableNumber, o.Waiter, o.Method, o.Total.InexactFloat64()})
	}
	if err := writeRows(f, SheetOrders, []interface{}{"#", "Date", "Table", "Waiter", "Method", "Total"}, orders); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	row := 1
	if header != nil {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		row++
	}
	for _, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := values
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		row++
	}
	return nil
}

// ReadSheet returns the rows of one sheet of an exported workbook.
func ReadSheet(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(sheet)
}
