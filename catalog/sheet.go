package catalog

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"restobar/model"
)

const importSheet = "Sheet1"

var (
	ErrEmptySheet  = errors.New("excel must have at least one row of data")
	ErrNoValidRows = errors.New("no valid rows found")
)

// RowError describes a skipped spreadsheet row. Row is 1-based as shown by
// spreadsheet programs.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseSheet reads products from the first sheet of an xlsx file. The first
// row is a header; columns are name, price, area, description, stock, daily
// base stock and featured. Only the first three are required.
func ParseSheet(r io.Reader) ([]model.Product, []RowError, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer xl.Close()

	rows, err := xl.GetRows(importSheet)
	if err != nil || len(rows) < 2 {
		return nil, nil, ErrEmptySheet
	}

	var (
		products []model.Product
		skipped  []RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		in, err := parseRow(row)
		if err == nil {
			err = in.Validate()
		}
		if err != nil {
			skipped = append(skipped, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		var p model.Product
		in.Apply(&p)
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, skipped, ErrNoValidRows
	}
	return products, skipped, nil
}

func parseRow(row []string) (ProductInput, error) {
	if len(row) < 3 {
		return ProductInput{}, errors.New("incomplete row")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil {
		return ProductInput{}, fmt.Errorf("invalid price %q", row[1])
	}
	in := ProductInput{
		Name:  row[0],
		Price: price,
		Area:  model.ProductionArea(strings.ToLower(strings.TrimSpace(row[2]))),
	}
	if len(row) > 3 {
		in.Description = row[3]
	}
	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		stock, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil {
			return in, fmt.Errorf("invalid stock %q", row[4])
		}
		in.TrackStock = true
		in.Stock = stock
	}
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		base, err := strconv.Atoi(strings.TrimSpace(row[5]))
		if err != nil {
			return in, fmt.Errorf("invalid daily base stock %q", row[5])
		}
		in.TrackStock = true
		in.DailyBaseStock = &base
	}
	if len(row) > 6 {
		switch strings.ToLower(strings.TrimSpace(row[6])) {
		case "1", "yes", "true", "x":
			in.Featured = true
		}
	}
	return in, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
