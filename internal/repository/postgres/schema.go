package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS maestro_articulos (
		codigo            TEXT PRIMARY KEY,
		descripcion       TEXT NOT NULL DEFAULT '',
		unidad_medida     TEXT NOT NULL DEFAULT '',
		nivel1_jerarquia  TEXT NOT NULL DEFAULT '',
		grupo_articulos   TEXT NOT NULL DEFAULT '',
		tipo_material     TEXT NOT NULL DEFAULT '',
		lead_time         DOUBLE PRECISION,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS centros (
		centro      TEXT PRIMARY KEY,
		descripcion TEXT NOT NULL DEFAULT '',
		pais        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS procesos (
		clase_proceso TEXT PRIMARY KEY,
		proceso       TEXT NOT NULL DEFAULT '',
		area          TEXT NOT NULL DEFAULT '',
		centro_codigo TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS demanda_proyectada (
		id              BIGSERIAL PRIMARY KEY,
		codigo          TEXT NOT NULL,
		fecha           DATE NOT NULL,
		cantidad_diaria DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_demanda_codigo_fecha ON demanda_proyectada (codigo, fecha)`,
	`CREATE TABLE IF NOT EXISTS movimientos_stock (
		id               BIGSERIAL PRIMARY KEY,
		codigo           TEXT NOT NULL,
		descripcion      TEXT NOT NULL DEFAULT '',
		unidad_medida    TEXT NOT NULL DEFAULT '',
		clase_movimiento TEXT NOT NULL,
		tipo_movimiento  TEXT NOT NULL DEFAULT '',
		fecha            DATE NOT NULL,
		cantidad         DOUBLE PRECISION NOT NULL DEFAULT 0,
		centro           TEXT NOT NULL DEFAULT '',
		almacen          TEXT NOT NULL DEFAULT '',
		almacen_valido   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movimientos_codigo_fecha ON movimientos_stock (codigo, fecha)`,
	`CREATE INDEX IF NOT EXISTS idx_movimientos_clase ON movimientos_stock (clase_movimiento)`,
	`CREATE TABLE IF NOT EXISTS plan_produccion (
		id            BIGSERIAL PRIMARY KEY,
		fecha         DATE NOT NULL,
		orden_proceso TEXT NOT NULL DEFAULT '',
		sku           TEXT NOT NULL,
		materia_prima TEXT,
		programado    DOUBLE PRECISION NOT NULL DEFAULT 0,
		consumo       DOUBLE PRECISION NOT NULL DEFAULT 0,
		clase_proceso TEXT NOT NULL DEFAULT '',
		numero_semana INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_sku_fecha ON plan_produccion (sku, fecha)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_mp_fecha ON plan_produccion (materia_prima, fecha)`,
	`CREATE TABLE IF NOT EXISTS upload_history (
		upload_id       TEXT PRIMARY KEY,
		filename        TEXT NOT NULL,
		file_type       TEXT NOT NULL,
		records_total   INTEGER NOT NULL DEFAULT 0,
		records_valid   INTEGER NOT NULL DEFAULT 0,
		records_invalid INTEGER NOT NULL DEFAULT 0,
		status          TEXT NOT NULL,
		error_message   TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at    TIMESTAMPTZ
	)`,
}

// Migrate creates the planning tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database schema ready")
	return nil
}
