// Package catalog reads drug catalogs from CSV or XLSX files. The first row
// is a header; columns are matched by name so their order does not matter.
package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/validation"
)

// RowError describes a row that was skipped.
type RowError struct {
	Row int    `json:"row"`
	Err string `json:"error"`
}

// Result holds the parsed drugs and the rows that were rejected.
type Result struct {
	Drugs   []domain.Drug
	Skipped []RowError
}

var required = []string{"name", "dosage", "form", "manufacturer", "batchnumber", "expirydate", "quantity", "unitprice", "sellingprice", "category"}

// ParseCSV reads a catalog in CSV form.
func ParseCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	p, err := newParser(header)
	if err != nil {
		return Result{}, err
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.skip(perr.StartLine, err)
				continue
			}
			return p.res, fmt.Errorf("read catalog: %w", err)
		}
		line, _ := reader.FieldPos(0)
		p.add(line, record)
	}
	return p.res, nil
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return Result{}, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, errors.New("workbook is empty")
	}
	p, err := newParser(rows[0])
	if err != nil {
		return Result{}, err
	}
	for i, row := range rows[1:] {
		p.add(i+2, row)
	}
	return p.res, nil
}

// Parse sniffs the payload and dispatches to ParseXLSX or ParseCSV.
func Parse(data []byte) (Result, error) {
	// xlsx files are zip archives
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return ParseXLSX(bytes.NewReader(data))
	}
	return ParseCSV(bytes.NewReader(data))
}

type parser struct {
	cols map[string]int
	res  Result
}

func normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

func newParser(header []string) (*parser, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalize(h)] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog header is missing columns: %s", strings.Join(missing, ", "))
	}
	return &parser{cols: cols, res: Result{Drugs: []domain.Drug{}}}, nil
}

func (p *parser) get(record []string, col string) string {
	i, ok := p.cols[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (p *parser) optional(record []string, col string) *string {
	if v := p.get(record, col); v != "" {
		return &v
	}
	return nil
}

func (p *parser) skip(line int, err error) {
	p.res.Skipped = append(p.res.Skipped, RowError{Row: line, Err: err.Error()})
}

func (p *parser) add(line int, record []string) {
	blank := true
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			blank = false
			break
		}
	}
	if blank {
		return
	}
	d, err := p.drug(record)
	if err != nil {
		p.skip(line, err)
		return
	}
	p.res.Drugs = append(p.res.Drugs, d)
}

func (p *parser) drug(record []string) (domain.Drug, error) {
	d := domain.Drug{
		Name:         p.get(record, "name"),
		GenericName:  p.optional(record, "genericname"),
		Dosage:       p.get(record, "dosage"),
		Form:         p.get(record, "form"),
		Manufacturer: p.get(record, "manufacturer"),
		BatchNumber:  p.get(record, "batchnumber"),
		Category:     p.get(record, "category"),
		Description:  p.optional(record, "description"),
		Barcode:      p.optional(record, "barcode"),
		MinimumStock: domain.DefaultMinimumStock,
	}
	for _, col := range []string{"name", "dosage", "form", "manufacturer", "batchnumber", "category"} {
		if p.get(record, col) == "" {
			return d, fmt.Errorf("%s is empty", col)
		}
	}

	var err error
	if d.ExpiryDate, err = validation.ParseDate(p.get(record, "expirydate")); err != nil {
		return d, fmt.Errorf("expiryDate: %w", err)
	}
	if d.Quantity, err = nonNegative(p.get(record, "quantity")); err != nil {
		return d, fmt.Errorf("quantity: %w", err)
	}
	if v := p.get(record, "minimumstock"); v != "" {
		if d.MinimumStock, err = nonNegative(v); err != nil {
			return d, fmt.Errorf("minimumStock: %w", err)
		}
	}
	if d.UnitPrice, err = price(p.get(record, "unitprice")); err != nil {
		return d, fmt.Errorf("unitPrice: %w", err)
	}
	if d.SellingPrice, err = price(p.get(record, "sellingprice")); err != nil {
		return d, fmt.Errorf("sellingPrice: %w", err)
	}
	return d, nil
}

func nonNegative(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

func price(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	if !d.Equal(d.Round(domain.PriceScale)) {
		return decimal.Zero, fmt.Errorf("more than %d decimal places", domain.PriceScale)
	}
	return d, nil
}
