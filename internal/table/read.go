package table

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Read parses a tabular stream, choosing the format from the filename:
// .xlsx goes through the workbook reader, everything else (csv, tsv,
// optionally gzipped) through the delimited reader.
func Read(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return ReadXLSX(r, name, opt)
	}
	return ReadCSV(r, name, opt)
}

// ReadFile opens and parses a file from disk.
func ReadFile(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opt)
}
