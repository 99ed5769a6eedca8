package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ReadOptions controls CSV/TSV ingestion.
type ReadOptions struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the filename and header line
	// among ',', ';', '\t'.
	Delimiter rune
}

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("input has no header row")

// ReadCSV parses CSV or TSV content into a Table. The first row is the
// header. Short rows are padded with empty cells; long rows are an error.
// Names ending in .gz are decompressed transparently.
func ReadCSV(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	delim := opt.Delimiter
	br := newPeekReader(r)
	if delim == 0 {
		delim = sniffDelimiter(name, br)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	maxRows := opt.MaxRows
	var rows [][]any
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want at most %d", len(rows)+1, len(rec), len(columns))
		}
		row := make([]any, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = rec[i]
			} else {
				row[i] = ""
			}
		}
		rows = append(rows, row)
		if maxRows > 0 && len(rows) >= maxRows {
			break
		}
	}
	return &Table{Name: baseName(name), Columns: columns, Rows: rows}, nil
}

func baseName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

// peekReader buffers the first line so the delimiter can be sniffed before
// the csv reader consumes the stream.
type peekReader struct {
	r    io.Reader
	head []byte
}

func newPeekReader(r io.Reader) *peekReader { return &peekReader{r: r} }

func (p *peekReader) firstLine() string {
	if p.head == nil {
		buf := make([]byte, 4096)
		n, _ := io.ReadFull(p.r, buf)
		p.head = buf[:n]
	}
	s := string(p.head)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func (p *peekReader) Read(b []byte) (int, error) {
	if len(p.head) > 0 {
		n := copy(b, p.head)
		p.head = p.head[n:]
		if len(p.head) == 0 {
			p.head = []byte{} // keep non-nil so firstLine is not re-read
		}
		return n, nil
	}
	return p.r.Read(b)
}

// sniffDelimiter picks the separator from the filename extension, falling
// back to counting candidates in the header line.
func sniffDelimiter(name string, pr *peekReader) rune {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tsv") {
		return '\t'
	}
	line := pr.firstLine()
	best, bestCount := ',', strings.Count(line, ",")
	if c := strings.Count(line, "\t"); c > bestCount {
		best, bestCount = '\t', c
	}
	if c := strings.Count(line, ";"); c > bestCount {
		best = ';'
	}
	return best
}
