package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	xls "github.com/extrame/xls"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

// RawSheet is one tab of a workbook with no assumed header.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Workbook is every sheet of one file, in file order.
type Workbook struct {
	Path   string
	Sheets []RawSheet
}

// Sheet finds a tab by name, ignoring case and accents. An empty name
// selects the first sheet.
func (w *Workbook) Sheet(name string) (RawSheet, error) {
	if len(w.Sheets) == 0 {
		return RawSheet{}, ErrEmptySheet
	}
	if name == "" {
		return w.Sheets[0], nil
	}
	target := textnorm.Fold(name)
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		if textnorm.Fold(s.Name) == target {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return RawSheet{}, fmt.Errorf("%w: %q (pestañas disponibles: %s)", ErrSheetNotFound, name, strings.Join(names, ", "))
}

// ReadOptions controls how a workbook is opened.
type ReadOptions struct {
	// CopyFirst reads from a private copy so files held open by another
	// program can still be imported.
	CopyFirst bool
	TempDir   string
}

// ReadWorkbook loads every sheet of an xlsx, xlsm, xls or csv file as text.
func ReadWorkbook(path string, opts ReadOptions) (*Workbook, error) {
	src := path
	if opts.CopyFirst {
		tmp, err := copyToTemp(path, opts.TempDir)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not copy workbook, reading in place")
		} else {
			defer os.Remove(tmp)
			src = tmp
		}
	}

	var (
		sheets []RawSheet
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		sheets, err = readXLSX(src)
	case ".xls":
		sheets, err = readXLS(src)
	case ".csv", ".txt":
		sheets, err = readCSV(src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return &Workbook{Path: path, Sheets: sheets}, nil
}

func copyToTemp(path, dir string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "pcp-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func readXLSX(path string) ([]RawSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []RawSheet
	for _, name := range f.GetSheetList() {
		// raw values keep date cells as serial numbers
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, RawSheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

func readXLS(path string) ([]RawSheet, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("xls has no sheets")
	}

	var sheets []RawSheet
	for i := 0; i < wb.NumSheets(); i++ {
		sh := wb.GetSheet(i)
		if sh == nil {
			continue
		}
		rows := make([][]string, 0, int(sh.MaxRow)+1)
		for r := 0; r <= int(sh.MaxRow); r++ {
			row := sh.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cols := row.LastCol()
			cells := make([]string, cols)
			for c := 0; c < cols; c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, RawSheet{Name: sh.Name, Rows: rows})
	}
	return sheets, nil
}

// readCSV accepts UTF-8 or Windows-1252 text and sniffs the delimiter from
// the first line.
func readCSV(path string) ([]RawSheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return []RawSheet{{Name: name, Rows: rows}}, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
