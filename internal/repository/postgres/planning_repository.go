package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/repository"
)

var _ repository.PlanningRepository = (*planningRepository)(nil)

// Snapshot lines are tagged either by class or, in older ledgers, by type.
const stockPredicate = `(clase_movimiento = 'STOCK' OR tipo_movimiento ILIKE '%STOCK%')`

// Usage is a consumption or sale class, or the same words in the type text.
const usagePredicate = `(UPPER(TRIM(clase_movimiento)) IN ('CONSUMO', 'VENTA') OR tipo_movimiento ILIKE '%CONSUMO%' OR tipo_movimiento ILIKE '%VENTA%')`

type planningRepository struct {
	db *DB
}

func NewPlanningRepository(db *DB) *planningRepository {
	return &planningRepository{db: db}
}

func (r *planningRepository) UpsertMasters(ctx context.Context, items []domain.MasterItem) (int, error) {
	query := `
		INSERT INTO maestro_articulos (
			codigo, descripcion, unidad_medida, nivel1_jerarquia,
			grupo_articulos, tipo_material, lead_time, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (codigo)
		DO UPDATE SET
			descripcion = EXCLUDED.descripcion,
			unidad_medida = EXCLUDED.unidad_medida,
			nivel1_jerarquia = EXCLUDED.nivel1_jerarquia,
			grupo_articulos = EXCLUDED.grupo_articulos,
			tipo_material = EXCLUDED.tipo_material,
			lead_time = EXCLUDED.lead_time,
			updated_at = NOW()
	`
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, m := range items {
			if _, err := stmt.ExecContext(ctx, m.SKU, m.Description, m.Unit, m.HierarchyL1,
				m.ArticleGroup, m.MaterialType, m.LeadTimeDays); err != nil {
				return fmt.Errorf("failed to upsert master %s: %w", m.SKU, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *planningRepository) UpsertCentros(ctx context.Context, centros []domain.CentroRecord) (int, error) {
	query := `
		INSERT INTO centros (centro, descripcion, pais)
		VALUES ($1, $2, $3)
		ON CONFLICT (centro)
		DO UPDATE SET descripcion = EXCLUDED.descripcion, pais = EXCLUDED.pais
	`
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range centros {
			if _, err := tx.ExecContext(ctx, query, c.Centro, c.Description, c.Country); err != nil {
				return fmt.Errorf("failed to upsert centro %s: %w", c.Centro, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(centros), nil
}

func (r *planningRepository) UpsertProcesos(ctx context.Context, procesos []domain.ProcesoRecord) (int, error) {
	query := `
		INSERT INTO procesos (clase_proceso, proceso, area, centro_codigo)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (clase_proceso)
		DO UPDATE SET
			proceso = EXCLUDED.proceso,
			area = EXCLUDED.area,
			centro_codigo = EXCLUDED.centro_codigo
	`
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range procesos {
			if _, err := tx.ExecContext(ctx, query, p.ProcessClass, p.Process, p.Area, p.CentroCode); err != nil {
				return fmt.Errorf("failed to upsert proceso %s: %w", p.ProcessClass, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(procesos), nil
}

func (r *planningRepository) InsertDemand(ctx context.Context, rows []domain.DemandRecord) (int, error) {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return copyRows(ctx, tx, "demanda_proyectada", []string{"codigo", "fecha", "cantidad_diaria"}, len(rows), func(i int) []any {
			d := rows[i]
			return []any{d.SKU, d.Date, d.DailyQuantity}
		})
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

var movementColumns = []string{
	"codigo", "descripcion", "unidad_medida", "clase_movimiento", "tipo_movimiento",
	"fecha", "cantidad", "centro", "almacen", "almacen_valido",
}

func movementValues(m domain.MovementRecord) []any {
	return []any{m.SKU, m.Description, m.Unit, m.Class, m.Type, m.Date, m.Quantity, m.Centro, m.Almacen, m.AlmacenValido}
}

func (r *planningRepository) InsertMovements(ctx context.Context, rows []domain.MovementRecord) (int, error) {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return copyRows(ctx, tx, "movimientos_stock", movementColumns, len(rows), func(i int) []any {
			return movementValues(rows[i])
		})
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *planningRepository) InsertProduction(ctx context.Context, rows []domain.ProductionPlanRecord) (int, error) {
	columns := []string{"fecha", "orden_proceso", "sku", "materia_prima", "programado", "consumo", "clase_proceso", "numero_semana"}
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return copyRows(ctx, tx, "plan_produccion", columns, len(rows), func(i int) []any {
			p := rows[i]
			var raw any
			if p.RawMaterial != "" {
				raw = p.RawMaterial
			}
			var week any
			if p.WeekNumber != nil {
				week = *p.WeekNumber
			}
			return []any{p.Date, p.ProcessOrder, p.SKU, raw, p.Programmed, p.Consumption, p.ProcessClass, week}
		})
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *planningRepository) ReplaceStock(ctx context.Context, rows []domain.MovementRecord) (int, int, error) {
	seen := make(map[string]struct{}, len(rows))
	var skus []string
	for _, m := range rows {
		if _, ok := seen[m.SKU]; !ok {
			seen[m.SKU] = struct{}{}
			skus = append(skus, m.SKU)
		}
	}

	var superseded int64
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM movimientos_stock WHERE clase_movimiento = 'STOCK' AND codigo = ANY($1)`,
			pq.Array(skus))
		if err != nil {
			return fmt.Errorf("failed to delete previous stock: %w", err)
		}
		if superseded, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to count previous stock: %w", err)
		}
		return copyRows(ctx, tx, "movimientos_stock", movementColumns, len(rows), func(i int) []any {
			return movementValues(rows[i])
		})
	})
	if err != nil {
		return 0, 0, err
	}
	return int(superseded), len(rows), nil
}

func (r *planningRepository) LogUpload(ctx context.Context, e *domain.UploadLog) error {
	query := `
		INSERT INTO upload_history (
			upload_id, filename, file_type, records_total, records_valid,
			records_invalid, status, error_message, completed_at
		) VALUES (
			:upload_id, :filename, :file_type, :records_total, :records_valid,
			:records_invalid, :status, :error_message, :completed_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to log upload: %w", err)
	}
	return nil
}

func (r *planningRepository) CountMasters(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM maestro_articulos`); err != nil {
		return 0, fmt.Errorf("failed to count masters: %w", err)
	}
	return n, nil
}

const masterSelect = `
	SELECT codigo, descripcion, unidad_medida, nivel1_jerarquia,
		grupo_articulos, tipo_material, lead_time
	FROM maestro_articulos
`

func (r *planningRepository) ListMasters(ctx context.Context) ([]domain.MasterItem, error) {
	var items []domain.MasterItem
	if err := r.db.SelectContext(ctx, &items, masterSelect+` ORDER BY codigo`); err != nil {
		return nil, fmt.Errorf("failed to list masters: %w", err)
	}
	return items, nil
}

func (r *planningRepository) SearchMasters(ctx context.Context, f domain.MasterFilter) (*domain.Listing[domain.MasterItem], error) {
	where, args := "", []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = ` WHERE codigo ILIKE $1 OR descripcion ILIKE $1`
	}
	out := &domain.Listing[domain.MasterItem]{Items: []domain.MasterItem{}}
	if err := r.db.GetContext(ctx, &out.Total, `SELECT COUNT(*) FROM maestro_articulos`+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count masters: %w", err)
	}
	query := masterSelect + where + ` ORDER BY codigo` + pageClause(&args, f.Page)
	if err := r.db.SelectContext(ctx, &out.Items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search masters: %w", err)
	}
	return out, nil
}

func (r *planningRepository) ListProcesos(ctx context.Context) ([]domain.ProcesoRecord, error) {
	var out []domain.ProcesoRecord
	err := r.db.SelectContext(ctx, &out, `
		SELECT clase_proceso, proceso, area, centro_codigo
		FROM procesos
		ORDER BY clase_proceso
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list procesos: %w", err)
	}
	return out, nil
}

func (r *planningRepository) ListDemand(ctx context.Context, f domain.DemandFilter) (*domain.Listing[domain.DemandRecord], error) {
	var conds []string
	var args []any
	if f.SKU != "" {
		args = append(args, f.SKU)
		conds = append(conds, fmt.Sprintf("codigo = $%d", len(args)))
	}
	conds, args = dateRange(conds, args, "fecha", f.From, f.To)
	where := whereClause(conds)

	out := &domain.Listing[domain.DemandRecord]{Items: []domain.DemandRecord{}}
	if err := r.db.GetContext(ctx, &out.Total, `SELECT COUNT(*) FROM demanda_proyectada`+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count demand: %w", err)
	}
	query := `SELECT codigo, fecha, cantidad_diaria FROM demanda_proyectada` + where + ` ORDER BY fecha` + pageClause(&args, f.Page)
	if err := r.db.SelectContext(ctx, &out.Items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list demand: %w", err)
	}
	return out, nil
}

func (r *planningRepository) ListMovements(ctx context.Context, f domain.MovementFilter) (*domain.Listing[domain.MovementRecord], error) {
	var conds []string
	var args []any
	if f.SKU != "" {
		args = append(args, f.SKU)
		conds = append(conds, fmt.Sprintf("codigo = $%d", len(args)))
	}
	if f.Class != "" {
		args = append(args, f.Class)
		conds = append(conds, fmt.Sprintf("clase_movimiento = $%d", len(args)))
	}
	conds, args = dateRange(conds, args, "fecha", f.From, f.To)
	where := whereClause(conds)

	out := &domain.Listing[domain.MovementRecord]{Items: []domain.MovementRecord{}}
	if err := r.db.GetContext(ctx, &out.Total, `SELECT COUNT(*) FROM movimientos_stock`+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}
	query := `SELECT ` + strings.Join(movementColumns, ", ") + ` FROM movimientos_stock` + where +
		` ORDER BY fecha DESC` + pageClause(&args, f.Page)
	if err := r.db.SelectContext(ctx, &out.Items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return out, nil
}

func (r *planningRepository) ListUploads(ctx context.Context, limit int) ([]domain.UploadLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.UploadLog
	err := r.db.SelectContext(ctx, &out, `
		SELECT upload_id, filename, file_type, records_total, records_valid,
			records_invalid, status, error_message, created_at, completed_at
		FROM upload_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return out, nil
}

func (r *planningRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	s := &domain.Stats{}
	err := r.db.GetContext(ctx, s, `
		SELECT
			(SELECT COUNT(*) FROM maestro_articulos) AS maestro,
			(SELECT COUNT(*) FROM demanda_proyectada) AS demanda,
			(SELECT COUNT(*) FROM movimientos_stock) AS movimientos,
			(SELECT COUNT(*) FROM plan_produccion) AS produccion
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	err = r.db.SelectContext(ctx, &s.Classes, `
		SELECT clase_movimiento, COUNT(*) AS registros, COALESCE(SUM(cantidad), 0) AS cantidad_total
		FROM movimientos_stock
		GROUP BY clase_movimiento
		ORDER BY clase_movimiento
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get class totals: %w", err)
	}
	return s, nil
}

func (r *planningRepository) Status(ctx context.Context) (*domain.SystemStatus, error) {
	var row struct {
		Master     bool         `db:"maestro"`
		Demand     bool         `db:"demanda"`
		Movements  bool         `db:"movimientos"`
		Production bool         `db:"produccion"`
		Stock      bool         `db:"stock"`
		TotalSKUs  int          `db:"total_skus"`
		LastUpload sql.NullTime `db:"last_upload"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT
			EXISTS (SELECT 1 FROM maestro_articulos) AS maestro,
			EXISTS (SELECT 1 FROM demanda_proyectada) AS demanda,
			EXISTS (SELECT 1 FROM movimientos_stock WHERE clase_movimiento <> 'STOCK') AS movimientos,
			EXISTS (SELECT 1 FROM plan_produccion) AS produccion,
			EXISTS (SELECT 1 FROM movimientos_stock WHERE clase_movimiento = 'STOCK') AS stock,
			(SELECT COUNT(*) FROM maestro_articulos) AS total_skus,
			(SELECT MAX(created_at) FROM upload_history) AS last_upload
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get system status: %w", err)
	}
	st := &domain.SystemStatus{
		Status:     "online",
		Master:     row.Master,
		Demand:     row.Demand,
		Movements:  row.Movements,
		Production: row.Production,
		Stock:      row.Stock,
		TotalSKUs:  row.TotalSKUs,
	}
	if row.LastUpload.Valid {
		st.LastUpload = &row.LastUpload.Time
	}
	return st, nil
}

func (r *planningRepository) LatestStockDate(ctx context.Context, sku string) (time.Time, bool, error) {
	query := `SELECT MAX(fecha) FROM movimientos_stock WHERE ` + stockPredicate
	args := []any{}
	if sku != "" {
		query += ` AND codigo = $1`
		args = append(args, sku)
	}
	return r.maxDate(ctx, query, args...)
}

func (r *planningRepository) StockByWarehouse(ctx context.Context, sku string, day time.Time) ([]domain.WarehouseBalance, error) {
	var out []domain.WarehouseBalance
	err := r.db.SelectContext(ctx, &out, `
		SELECT centro, almacen, MAX(almacen_valido) AS almacen_valido, SUM(cantidad) AS quantity
		FROM movimientos_stock
		WHERE codigo = $1 AND fecha = $2 AND `+stockPredicate+`
		GROUP BY centro, almacen
		ORDER BY centro, almacen
	`, sku, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock by warehouse: %w", err)
	}
	return out, nil
}

func (r *planningRepository) LatestStock(ctx context.Context) ([]domain.WarehouseBalance, error) {
	var out []domain.WarehouseBalance
	err := r.db.SelectContext(ctx, &out, `
		WITH latest AS (
			SELECT codigo, MAX(fecha) AS fecha
			FROM movimientos_stock
			WHERE `+stockPredicate+`
			GROUP BY codigo
		)
		SELECT m.codigo AS sku, m.centro, m.almacen, MAX(m.almacen_valido) AS almacen_valido, SUM(m.cantidad) AS quantity
		FROM movimientos_stock m
		JOIN latest l ON l.codigo = m.codigo AND l.fecha = m.fecha
		WHERE `+stockPredicate+`
		GROUP BY m.codigo, m.centro, m.almacen
		ORDER BY m.codigo, m.centro, m.almacen
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stock: %w", err)
	}
	return out, nil
}

func (r *planningRepository) DemandByDate(ctx context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error) {
	return r.daily(ctx, `
		SELECT codigo AS sku, fecha, '' AS label, SUM(cantidad_diaria) AS quantity
		FROM demanda_proyectada
		WHERE fecha BETWEEN $1 AND $2 AND ($3 = '' OR codigo = $3)
		GROUP BY codigo, fecha
		ORDER BY codigo, fecha
	`, from, to, sku)
}

func (r *planningRepository) ConsumptionByDate(ctx context.Context, rawMaterial string, from, to time.Time) ([]domain.DailyQuantity, error) {
	return r.daily(ctx, `
		SELECT materia_prima AS sku, fecha, clase_proceso AS label, SUM(consumo) AS quantity
		FROM plan_produccion
		WHERE materia_prima IS NOT NULL AND materia_prima <> ''
			AND fecha BETWEEN $1 AND $2 AND ($3 = '' OR materia_prima = $3)
		GROUP BY materia_prima, fecha, clase_proceso
		ORDER BY materia_prima, fecha, clase_proceso
	`, from, to, rawMaterial)
}

func (r *planningRepository) SupplyByDate(ctx context.Context, sku string, from, to time.Time) ([]domain.DailyQuantity, error) {
	return r.daily(ctx, `
		SELECT sku, fecha, clase_proceso AS label, SUM(programado) AS quantity
		FROM plan_produccion
		WHERE fecha BETWEEN $1 AND $2 AND ($3 = '' OR sku = $3)
		GROUP BY sku, fecha, clase_proceso
		ORDER BY sku, fecha, clase_proceso
	`, from, to, sku)
}

func (r *planningRepository) LatestUsageDate(ctx context.Context) (time.Time, bool, error) {
	return r.maxDate(ctx, `SELECT MAX(fecha) FROM movimientos_stock WHERE `+usagePredicate)
}

func (r *planningRepository) UsageByDate(ctx context.Context, from, to time.Time) ([]domain.DailyQuantity, error) {
	return r.daily(ctx, `
		SELECT codigo AS sku, fecha, '' AS label, SUM(cantidad) AS quantity
		FROM movimientos_stock
		WHERE fecha BETWEEN $1 AND $2 AND `+usagePredicate+`
		GROUP BY codigo, fecha
	`, from, to)
}

func (r *planningRepository) daily(ctx context.Context, query string, args ...any) ([]domain.DailyQuantity, error) {
	var out []domain.DailyQuantity
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	return out, nil
}

func (r *planningRepository) maxDate(ctx context.Context, query string, args ...any) (time.Time, bool, error) {
	var d sql.NullTime
	if err := r.db.GetContext(ctx, &d, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get max date: %w", err)
	}
	return d.Time, d.Valid, nil
}

// copyRows streams n rows into table with COPY inside tx.
func copyRows(ctx context.Context, tx *sqlx.Tx, table string, columns []string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("failed to copy row %d into %s: %w", i, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}
	return nil
}

func dateRange(conds []string, args []any, column string, from, to *time.Time) ([]string, []any) {
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func pageClause(args *[]any, p domain.Page) string {
	if p.Limit <= 0 {
		return ""
	}
	*args = append(*args, p.Limit, max(p.Offset, 0))
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(*args)-1, len(*args))
}
