package domain

import (
	"fmt"
	"strings"
)

// RecordType is the closed set of spreadsheet kinds the pipeline understands.
type RecordType int

const (
	RecordUnknown RecordType = iota
	RecordMaster
	RecordDemand
	RecordMovements
	RecordProduction
	RecordStock
	RecordCentro
	RecordProceso
)

var recordTypeNames = map[RecordType]string{
	RecordUnknown:    "unknown",
	RecordMaster:     "maestro",
	RecordDemand:     "demanda",
	RecordMovements:  "movimientos",
	RecordProduction: "produccion",
	RecordStock:      "stock",
	RecordCentro:     "centro_master",
	RecordProceso:    "proceso_master",
}

var recordTypeAliases = map[string]RecordType{
	"maestro":        RecordMaster,
	"master":         RecordMaster,
	"demanda":        RecordDemand,
	"demand":         RecordDemand,
	"movimientos":    RecordMovements,
	"movements":      RecordMovements,
	"produccion":     RecordProduction,
	"production":     RecordProduction,
	"stock":          RecordStock,
	"centro_master":  RecordCentro,
	"centro":         RecordCentro,
	"proceso_master": RecordProceso,
	"proceso":        RecordProceso,
}

// RecordTypes lists every known type in catalog order.
func RecordTypes() []RecordType {
	return []RecordType{
		RecordMaster,
		RecordDemand,
		RecordMovements,
		RecordProduction,
		RecordStock,
		RecordCentro,
		RecordProceso,
	}
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether t is one of the concrete record types.
func (t RecordType) Known() bool {
	return t > RecordUnknown && t <= RecordProceso
}

// RequiresMaster reports whether ingesting t needs article master data first.
func (t RecordType) RequiresMaster() bool {
	switch t {
	case RecordDemand, RecordMovements, RecordProduction, RecordStock:
		return true
	}
	return false
}

// ParseRecordType accepts the canonical Spanish names plus English aliases.
func ParseRecordType(s string) (RecordType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := recordTypeAliases[key]; ok {
		return t, nil
	}
	return RecordUnknown, fmt.Errorf("unknown record type %q", s)
}

func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *RecordType) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "unknown" {
		*t = RecordUnknown
		return nil
	}
	parsed, err := ParseRecordType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
