package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// XLSX support parses the OOXML parts directly (workbook, relationships,
// shared strings, one worksheet). Formatting, formulas and merged cells are
// ignored; cell values come through as the stored strings.

// ReadXLSX parses the first worksheet of an .xlsx workbook into a Table.
// The first row is the header. Short rows are padded with empty cells.
func ReadXLSX(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	sheetPath, err := firstSheetPath(zr)
	if err != nil {
		return nil, err
	}
	shared := sharedStrings(zipPart(zr, "xl/sharedStrings.xml"))
	rows := newWorksheetRows(zipPart(zr, sheetPath), shared)

	header, ok := rows.Next()
	if !ok || len(header) == 0 {
		return nil, ErrNoHeader
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var out [][]any
	for {
		rec, ok := rows.Next()
		if !ok {
			break
		}
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want at most %d", len(out)+1, len(rec), len(columns))
		}
		row := make([]any, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = rec[i]
			} else {
				row[i] = ""
			}
		}
		out = append(out, row)
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
	}
	return &Table{Name: baseName(name), Columns: columns, Rows: out}, nil
}

// firstSheetPath resolves the workbook's first sheet to its zip entry,
// following the relationship id when present and falling back to the
// conventional location.
func firstSheetPath(zr *zip.Reader) (string, error) {
	sheets := workbookSheets(zipPart(zr, "xl/workbook.xml"))
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	rels := workbookRels(zipPart(zr, "xl/_rels/workbook.xml.rels"))
	if target, ok := rels[sheets[0].rid]; ok {
		target = strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(target, "xl/") {
			target = path.Join("xl", target)
		}
		return target, nil
	}
	return "xl/worksheets/sheet1.xml", nil
}

type wbSheet struct {
	name string
	rid  string
}

func workbookSheets(data []byte) []wbSheet {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []wbSheet
	for {
		tok, err := dec.Token()
		if err != nil {
			return sheets
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		var s wbSheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "id": // r:id
				s.rid = a.Value
			}
		}
		sheets = append(sheets, s)
	}
}

func workbookRels(data []byte) map[string]string {
	out := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
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

func zipPart(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

func sharedStrings(data []byte) []string {
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
			}
		case xml.CharData:
			if inT {
				buf.Write([]byte(se))
			}
		}
	}
}

// worksheetRows streams <row> elements from a worksheet part, resolving
// shared-string cells and sparse cell references ("C12" may follow "A12").
type worksheetRows struct {
	dec    *xml.Decoder
	shared []string
}

func newWorksheetRows(data []byte, shared []string) *worksheetRows {
	return &worksheetRows{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

func (w *worksheetRows) Next() ([]string, bool) {
	var row []string
	inRow := false
	for {
		tok, err := w.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "row":
				inRow = true
				row = nil
			case "c":
				if !inRow {
					continue
				}
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(row)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = w.cellValue(typ)
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				return row, true
			}
		}
	}
}

// cellValue reads to the end of the current <c> element and returns its
// text, resolving shared-string indexes.
func (w *worksheetRows) cellValue(typ string) string {
	var val string
	for {
		tok, err := w.dec.Token()
		if err != nil {
			return val
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, err := w.dec.Token()
					if err != nil {
						break
					}
					if _, done := tk.(xml.EndElement); done {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write([]byte(ch))
					}
				}
				val = sb.String()
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				if typ == "s" {
					i := atoi(val)
					if i >= 0 && i < len(w.shared) {
						return w.shared[i]
					}
					return ""
				}
				return val
			}
		}
	}
}

// columnIndex converts the letter prefix of a cell reference to a 0-based
// column, so "C12" yields 2. Returns -1 for an empty reference.
func columnIndex(ref string) int {
	n := 0
	i := 0
	for ; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			n = n*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			n = n*26 + int(c-'a'+1)
		default:
			i = len(ref)
		}
	}
	if n == 0 {
		return -1
	}
	return n - 1
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		n = n*10 + int(s[i]-'0')
	}
	if s == "" {
		return -1
	}
	return n
}
