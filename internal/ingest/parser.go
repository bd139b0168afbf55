package ingest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/catalog"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

// ParseResult is a cleaned sheet plus everything needed to report on it.
type ParseResult struct {
	Filename  string
	Sheet     string
	Type      domain.RecordType
	Detection *Detection
	HeaderRow int
	Columns   []string
	Mapped    map[string]string
	Total     int
	Excluded  int
	Batch     *domain.Batch
	Warnings  []string
}

// Parser runs locate, map, clean for one sheet at a time.
type Parser struct {
	cat      *catalog.Catalog
	scanRows int
	read     ReadOptions
	now      func() time.Time
}

// NewParser builds a parser from the ingest configuration. A nil catalog
// selects the built-in one.
func NewParser(cat *catalog.Catalog, cfg config.IngestConfig, tempDir string) *Parser {
	if cat == nil {
		cat = catalog.Default()
	}
	scan := cfg.HeaderScanRows
	if scan <= 0 {
		scan = DefaultHeaderScanRows
	}
	return &Parser{
		cat:      cat,
		scanRows: scan,
		read:     ReadOptions{CopyFirst: cfg.CopyBeforeRead, TempDir: tempDir},
		now:      time.Now,
	}
}

// WithClock overrides the clock used for dateless stock files.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	cp := *p
	cp.now = now
	return &cp
}

// Catalog returns the catalog in use.
func (p *Parser) Catalog() *catalog.Catalog { return p.cat }

// ReadWorkbook opens path with the parser's read options.
func (p *Parser) ReadWorkbook(path string) (*Workbook, error) {
	return ReadWorkbook(path, p.read)
}

// ParseFile reads path and parses one sheet of it. RecordUnknown asks for
// detection; an empty sheet name selects the first tab.
func (p *Parser) ParseFile(path string, t domain.RecordType, sheet string) (*ParseResult, error) {
	wb, err := p.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	raw, err := wb.Sheet(sheet)
	if err != nil {
		return nil, err
	}
	return p.ParseSheet(path, raw, t)
}

// ParseSheet turns a raw sheet into a typed batch. Structural problems are
// returned as errors and nothing of the sheet is kept.
func (p *Parser) ParseSheet(filename string, raw RawSheet, t domain.RecordType) (*ParseResult, error) {
	if len(raw.Rows) == 0 {
		return nil, ErrEmptySheet
	}

	res := &ParseResult{Filename: filename, Sheet: raw.Name}

	hm := LocateHeader(raw.Rows, p.scanRows, p.cat)
	if !hm.Found() {
		res.Warnings = append(res.Warnings, "No se encontró una fila de encabezados reconocible; se usa la primera fila")
	}
	res.HeaderRow = hm.Row
	header := raw.Rows[hm.Row]
	data := raw.Rows[hm.Row+1:]
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySheet, raw.Name)
	}
	res.Columns = header

	if !t.Known() {
		d := Detect(filename, header, p.cat)
		if !d.Type.Known() {
			return nil, fmt.Errorf("%w: columnas leídas %v", ErrUnknownRecordType, header)
		}
		res.Detection = &d
		t = d.Type
		log.Info().Str("file", filename).Str("type", t.String()).Str("method", d.Method).Msg("Detected record type")
	}
	res.Type = t

	h, err := HandlerFor(t)
	if err != nil {
		return nil, err
	}
	schema, ok := p.cat.Schema(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecordType, t)
	}

	cols := MapColumns(header, schema)
	if missing := cols.Missing(schema.Required); len(missing) > 0 {
		return nil, &StructuralError{Type: t, Missing: missing, Header: header, HeaderRow: hm.Row}
	}
	res.Mapped = cols.Mapped()

	cleaned := Clean(h, data, cols, p.now())
	res.Batch = cleaned.Batch
	res.Total = cleaned.Total
	res.Excluded = cleaned.Excluded
	res.Warnings = append(res.Warnings, cleaned.Warnings...)

	log.Debug().
		Str("file", filename).
		Str("sheet", raw.Name).
		Str("type", t.String()).
		Int("header_row", hm.Row).
		Int("rows", res.Total).
		Int("kept", res.Batch.Len()).
		Msg("Parsed sheet")
	return res, nil
}
