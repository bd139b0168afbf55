package catalog

import (
	"sync"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
)

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in catalog for ERP exports.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat = New(Version, defaultSchemas(), []string{"material", "stock final tons"},
			defaultFilenameRules(), defaultKeywordWeights(), defaultGenericRules())
	})
	return defaultCat
}

func defaultSchemas() []Schema {
	return []Schema{
		{
			Type: domain.RecordMaster,
			Fields: []Field{
				{"codigo", []string{"codigo", "sku", "material", "id_articulo", "código"}},
				{"descripcion", []string{"descripcion", "texto breve", "nombre", "descripción"}},
				{"unidad_medida", []string{"unidad de medida", "umb", "unidad", "u.m."}},
				{"nivel1_jerarquia", []string{"nivel 1 jerarquia de producto", "jerarquia 1", "familia", "rubro", "nivel 1", "categoria", "cat"}},
				{"grupo_articulos", []string{"grupo de articulos", "grupo art.", "grupo artículos"}},
				{"tipo_material", []string{"tipo de material", "tipo mat.", "tipo"}},
				{"lead_time", []string{"lead time", "tiempo entrega", "plazo entrega", "dias reposicion", "lt"}},
			},
			Required: []string{"codigo"},
		},
		{
			Type: domain.RecordDemand,
			Fields: []Field{
				{"fecha", []string{"fecha", "dia", "date", "periodo", "mes", "year", "día", "período"}},
				{"codigo", []string{"codigo", "sku", "material", "código", "articulo", "artículo", "cod"}},
				{"cantidad_diaria", []string{"cantidad diaria", "cantidad", "demanda", "qty", "proyeccion", "forecast", "venta", "ventas", "salidas", "historia", "total"}},
			},
			Required: []string{"fecha", "cantidad_diaria"},
		},
		{
			Type: domain.RecordMovements,
			Fields: []Field{
				{"codigo", []string{"codigo", "sku", "material", "código"}},
				{"clase_movimiento", []string{"cl.movimiento", "clase de movimiento", "movimiento", "transaccion", "clase", "tipo"}},
				{"fecha", []string{"fecha", "contabilizacion", "dia"}},
				{"tipo_movimiento", []string{"tipo movimiento", "texto clase mov.", "tipo"}},
				{"cantidad", []string{"cantidad", "cant.", "qty", "total"}},
				{"centro", []string{"centro", "planta"}},
				{"almacen", []string{"almacen", "almacén", "deposito", "dep.", "alm."}},
				{"unidad_medida", []string{"unidad de medida", "umb", "unidad", "u.m."}},
			},
			Required: []string{"clase_movimiento", "cantidad"},
		},
		{
			Type: domain.RecordProduction,
			Fields: []Field{
				{"fecha", []string{"fecha", "dia", "date", "periodo"}},
				{"orden_proceso", []string{"orden de proceso", "orden", "id orden", "numero orden"}},
				{"sku", []string{"sku", "codigo", "producto terminado", "pt"}},
				{"materia_prima", []string{"materia prima", "mp", "insumo", "componente"}},
				{"programado", []string{"programado", "cantidad programada", "qty programada"}},
				{"clase_proceso", []string{"clase proceso", "clase", "tipo proceso"}},
				{"numero_semana", []string{"numero semana", "semana", "week"}},
				{"consumo", []string{"consumo", "cantidad consumo", "consumido"}},
			},
			Required: []string{"sku", "programado"},
		},
		{
			Type: domain.RecordStock,
			Fields: []Field{
				{"codigo", []string{"material", "codigo", "sku", "código"}},
				// free stock wins over the tonnage column
				{"cantidad", []string{"libre utilizacion", "libre utilización", "stock final tons", "stock", "inventario", "qty"}},
				{"centro", []string{"centro", "planta"}},
				{"almacen", []string{"almacen", "almacén", "deposito", "dep.", "alm."}},
				{"descripcion", []string{"texto breve de material", "descripcion"}},
				{"unidad_medida", []string{"unidad medida base", "umb"}},
				{"almacen_valido", []string{"almacen valido", "almacén válido", "valido"}},
			},
			Required: []string{"codigo", "cantidad"},
		},
		{
			Type: domain.RecordCentro,
			Fields: []Field{
				{"centro", []string{"centro", "id_centro", "planta"}},
				{"descripcion", []string{"descripcion", "nombre", "texto"}},
				{"pais", []string{"pais", "país", "country"}},
			},
			Required: []string{"centro"},
		},
		{
			Type: domain.RecordProceso,
			Fields: []Field{
				{"clase_proceso", []string{"clase proceso", "tipo proceso", "clase"}},
				{"proceso", []string{"proceso", "descripcion proceso", "id proceso"}},
				{"area", []string{"area", "área", "sector"}},
				{"centro_codigo", []string{"centro", "id_centro", "planta"}},
			},
			Required: []string{"proceso"},
		},
	}
}

// Order matters: stock export names win over generic movement names.
func defaultFilenameRules() []FilenameRule {
	return []FilenameRule{
		{domain.RecordStock, []string{"mb52"}},
		{domain.RecordDemand, []string{"ventaproy", "planventa", "proyeccion", "historia"}},
		{domain.RecordMovements, []string{"datobo", "movimiento", "stockmov", "kardex", "transaccion"}},
		{domain.RecordMaster, []string{"maestro", "articul", "master"}},
		{domain.RecordProduction, []string{"produccion", "planprod", "orden", "planesproduccion", "planes"}},
		{domain.RecordStock, []string{"stock", "inventario", "saldos"}},
	}
}

func defaultKeywordWeights() []KeywordWeight {
	return []KeywordWeight{
		{domain.RecordMovements, []string{"clase mov", "tipo mov", "cl.mov", "entradas", "salidas", "stock"}, 2},
		{domain.RecordDemand, []string{"cantidad diaria", "proyeccion", "forecast", "pronostico", "venta", "ventas", "historia"}, 3},
		{domain.RecordMaster, []string{"jerarquia", "familia", "grupo art", "tipo mat", "peso", "volumen", "maestro"}, 2},
	}
}

func defaultGenericRules() []FilenameRule {
	return []FilenameRule{
		{domain.RecordMaster, []string{"maestro", "master", "articulo"}},
		{domain.RecordDemand, []string{"demanda", "venta", "proy"}},
		{domain.RecordMovements, []string{"mov", "stock", "dato"}},
		{domain.RecordProduction, []string{"prod"}},
		{domain.RecordStock, []string{"inv"}},
	}
}
