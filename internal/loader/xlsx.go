package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

type xlsxDecoder struct{}

// Decode reads one worksheet. Sheet names match case-insensitively; without a
// name, SheetIndex picks the sheet by 1-based workbook position.
func (xlsxDecoder) Decode(ctx context.Context, p string, opt Options) (*table.Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	workbookXML := readZipFile(&zr.Reader, "xl/workbook.xml")
	if workbookXML == nil {
		return nil, errors.New("xl/workbook.xml missing: not an xlsx workbook")
	}
	wb := parseWorkbook(workbookXML)
	rels := parseRelationships(readZipFile(&zr.Reader, "xl/_rels/workbook.xml.rels"))
	target, err := resolveSheet(wb.sheets, rels, filepath.Base(p), opt)
	if err != nil {
		return nil, err
	}
	entry := findZipFile(&zr.Reader, target)
	if entry == nil {
		return nil, fmt.Errorf("worksheet %s missing from archive", target)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open worksheet: %w", err)
	}
	defer rc.Close()

	rr := &sheetRowReader{
		dec:    xml.NewDecoder(rc),
		shared: parseSharedStrings(readZipFile(&zr.Reader, "xl/sharedStrings.xml")),
		dates:  parseDateStyles(readZipFile(&zr.Reader, "xl/styles.xml")),
		date04: wb.date1904,
	}
	header, err := rr.firstNonBlank()
	if err != nil {
		return nil, err
	}
	if opt.HeaderOnly {
		return headerTable(table.UniqueNames(headerNames(header)), nil), nil
	}

	var rows [][]any
	width := len(header)
	for n := 1; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, ok, err := rr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if blankRow(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
	}
	hdr := headerNames(header)
	for len(hdr) < width {
		hdr = append(hdr, "")
	}
	names := table.UniqueNames(hdr)
	cols := make([]*table.Column, width)
	for j := range names {
		vals := make([]any, len(rows))
		for i, row := range rows {
			if j < len(row) {
				vals[i] = row[j]
			}
		}
		cols[j] = inferValues(names[j], vals, false)
	}
	return table.New(cols...)
}

func resolveSheet(sheets []wbSheet, rels map[string]string, book string, opt Options) (string, error) {
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, opt.Sheet) {
				if rel, ok := rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
		}
		available := make([]string, len(sheets))
		for i, s := range sheets {
			available[i] = s.Name
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
			opt.Sheet, book, strings.Join(available, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range: workbook has %d sheets", idx, len(sheets))
	}
	if rel, ok := rels[sheets[idx-1].RID]; ok {
		return normalizeRelPath(rel), nil
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

func headerNames(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v != nil {
			out[i] = normalize.String(v)
		}
	}
	return out
}

// firstNonBlank returns the header row, skipping leading blank rows.
func (r *sheetRowReader) firstNonBlank() ([]any, error) {
	for {
		row, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("worksheet is empty")
		}
		if !blankRow(row) {
			return row, nil
		}
	}
}

func blankRow(row []any) bool {
	for _, v := range row {
		if v != nil {
			return false
		}
	}
	return true
}

type workbook struct {
	sheets   []wbSheet
	date1904 bool
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

// parseWorkbook extracts sheet entries with names and relationship ids.
func parseWorkbook(data []byte) workbook {
	var wb workbook
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return wb
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			for _, a := range se.Attr {
				if a.Name.Local == "date1904" {
					wb.date1904 = a.Value == "1" || a.Value == "true"
				}
			}
		case "sheet":
			var s wbSheet
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					s.Name = a.Value
				case "sheetId":
					s.SheetID = atoiSafe(a.Value)
				case "id":
					s.RID = a.Value // r: namespace
				}
			}
			wb.sheets = append(wb.sheets, s)
		}
	}
}

// parseRelationships returns r:id -> Target.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" && target != "" {
				out[id] = target
			}
		}
	}
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readZipFile(zr *zip.Reader, name string) []byte {
	f := findZipFile(zr, name)
	if f == nil {
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	return b
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// parseDateStyles returns, per cellXfs index, whether the number format is a date.
func parseDateStyles(data []byte) []bool {
	if len(data) == 0 {
		return nil
	}
	custom := map[int]string{}
	var xfs []bool
	dec := xml.NewDecoder(bytes.NewReader(data))
	inCellXfs := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "numFmt":
				var id int
				var code string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "numFmtId":
						id = atoiSafe(a.Value)
					case "formatCode":
						code = a.Value
					}
				}
				custom[id] = code
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				id := 0
				for _, a := range se.Attr {
					if a.Name.Local == "numFmtId" {
						id = atoiSafe(a.Value)
					}
				}
				if code, ok := custom[id]; ok {
					xfs = append(xfs, dateFormatCode(code))
				} else {
					xfs = append(xfs, builtinDateFormat(id))
				}
			}
		case xml.EndElement:
			if se.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return xfs
}

func builtinDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

// dateFormatCode reports whether a custom format code renders a date or time.
// Quoted literals, escapes and bracketed sections ([Red], [$-409]) are ignored.
func dateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ydhs")
}

// sheetRowReader streams rows out of a worksheet part.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	dates  []bool
	date04 bool
}

// Next returns the next <row> as typed cells: string, bool, int64, float64,
// time.Time or nil.
func (r *sheetRowReader) Next() ([]any, bool, error) {
	var row []any
	inRow := false
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read worksheet: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow = true
				row = nil
			}
			if inRow && se.Name.Local == "c" {
				var rAttr, tAttr string
				style := -1
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						rAttr = a.Value
					case "t":
						tAttr = a.Value
					case "s":
						style = atoiSafe(a.Value)
					}
				}
				colIdx := colIndexFromRef(rAttr)
				if colIdx < 0 {
					colIdx = len(row)
				}
				val, err := r.readCellValue(tAttr, style)
				if err != nil {
					return nil, false, err
				}
				for len(row) <= colIdx {
					row = append(row, nil)
				}
				row[colIdx] = val
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				return row, true, nil
			}
		}
	}
}

func (r *sheetRowReader) readCellValue(tAttr string, style int) (any, error) {
	var raw string
	var seen bool
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read cell: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, er := r.dec.Token()
					if er != nil {
						return nil, fmt.Errorf("read cell: %w", er)
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				raw += sb.String()
				seen = true
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				if !seen {
					return nil, nil
				}
				return r.typed(tAttr, style, raw), nil
			}
		}
	}
}

func (r *sheetRowReader) typed(tAttr string, style int, raw string) any {
	switch tAttr {
	case "s":
		idx := atoiSafe(raw)
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
		return nil
	case "inlineStr", "str", "e":
		return raw
	case "b":
		return raw == "1" || strings.EqualFold(raw, "true")
	case "d":
		if t, ok := parseTimeMaybe(raw); ok {
			return t
		}
		return raw
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	if style >= 0 && style < len(r.dates) && r.dates[style] {
		return excelTime(f, r.date04)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// excelTime converts a serial day number to a time in UTC.
func excelTime(serial float64, date1904 bool) time.Time {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if date1904 {
		epoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	days := math.Floor(serial)
	ns := math.Round((serial - days) * 86400 * 1e9)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(ns))
}

// colIndexFromRef maps refs like "C12" to a 0-based column index.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") but ZIP entries never
// carry the leading slash.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
