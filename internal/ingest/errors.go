package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

var (
	ErrUnknownRecordType     = errors.New("could not detect the record type of the file")
	ErrMissingRequiredFields = errors.New("required columns missing after mapping")
	ErrEmptySheet            = errors.New("sheet has no data below the header")
	ErrSheetNotFound         = errors.New("sheet not found in workbook")
	ErrUnsupportedFormat     = errors.New("unsupported file format")
)

// StructuralError reports a file that cannot be imported at all. Nothing of
// it is persisted.
type StructuralError struct {
	Type      domain.RecordType
	Missing   []string
	Header    []string
	HeaderRow int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: faltan columnas requeridas [%s] (encabezado en fila %d: %s)",
		e.Type, strings.Join(e.Missing, ", "), e.HeaderRow+1, strings.Join(e.Header, " | "))
}

func (e *StructuralError) Unwrap() error { return ErrMissingRequiredFields }
