package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"

	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// xlsDecoder reads legacy BIFF workbooks. Cells come back as display text and
// are typed the same way as CSV fields.
type xlsDecoder struct{}

func (xlsDecoder) Decode(ctx context.Context, path string, opt Options) (t *table.Table, err error) {
	// the BIFF reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("corrupt xls: %v", r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	defer f.Close()
	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open xls: no Workbook stream")
	}

	sheet, err := pickXLSSheet(wb, filepath.Base(path), opt)
	if err != nil {
		return nil, err
	}
	var header []string
	var raw [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, row.LastCol())
		empty := true
		for j := range cells {
			cells[j] = row.Col(j)
			if cells[j] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		if header == nil {
			header = trimTrailingEmpty(cells)
			if opt.HeaderOnly {
				break
			}
			continue
		}
		raw = append(raw, cells)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}
	if opt.HeaderOnly {
		return headerTable(table.UniqueNames(header), nil), nil
	}

	width := len(header)
	for _, r := range raw {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}
	names := table.UniqueNames(header)
	cols := make([]*table.Column, width)
	for j := range names {
		vals := make([]string, len(raw))
		for i, r := range raw {
			if j < len(r) {
				vals[i] = r[j]
			}
		}
		cols[j] = inferText(names[j], vals)
	}
	return table.New(cols...)
}

func pickXLSSheet(wb *xls.WorkBook, book string, opt Options) (*xls.WorkSheet, error) {
	n := wb.NumSheets()
	if opt.Sheet != "" {
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			s := wb.GetSheet(i)
			if s == nil {
				continue
			}
			if strings.EqualFold(s.Name, opt.Sheet) {
				return s, nil
			}
			names = append(names, s.Name)
		}
		return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
			opt.Sheet, book, strings.Join(names, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > n {
		return nil, fmt.Errorf("sheet index %d out of range: workbook has %d sheets", idx, n)
	}
	s := wb.GetSheet(idx - 1)
	if s == nil {
		return nil, fmt.Errorf("sheet index %d unreadable", idx)
	}
	return s, nil
}

// xlsRow returns row i or nil. WorkSheet.Row dereferences rows that were
// never written, so gaps surface as a recovered panic.
func xlsRow(s *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.Row(i)
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
