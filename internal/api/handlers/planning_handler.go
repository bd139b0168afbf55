package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/domain"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/projection"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/service"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/textnorm"
)

type PlanningHandler struct {
	planning *service.PlanningService
}

func NewPlanningHandler(planning *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{planning: planning}
}

func (h *PlanningHandler) horizon(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("horizon"))
	if raw == "" {
		return h.planning.DefaultHorizon(), nil
	}
	return strconv.Atoi(raw)
}

// GetProjection returns the daily projected stock of one SKU.
// Query: horizon, safety_stock, warehouses ("2100 - 2118,2100 - 2119").
func (h *PlanningHandler) GetProjection(c *gin.Context) {
	sku := c.Param("sku")
	// Alerts live under the same prefix.
	if sku == "alerts" {
		h.GetAlerts(c)
		return
	}

	horizon, err := h.horizon(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid horizon", err)
		return
	}
	buffer := 0.0
	if raw := strings.TrimSpace(c.Query("safety_stock")); raw != "" {
		if buffer, err = strconv.ParseFloat(raw, 64); err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid safety_stock", err)
			return
		}
	}
	req := projection.Request{SKU: sku, HorizonDays: horizon, Buffer: buffer}
	if raw, ok := c.GetQuery("warehouses"); ok {
		req.Warehouses = projection.ParseWarehouses(raw)
	}

	points, err := h.planning.Project(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to compute projection", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sku": textnorm.SKU(sku), "projection": points})
}

func (h *PlanningHandler) GetAlerts(c *gin.Context) {
	horizon, err := h.horizon(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid horizon", err)
		return
	}
	alerts, err := h.planning.Alerts(c.Request.Context(), horizon)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to scan alerts", err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *PlanningHandler) ListSafetyStocks(c *gin.Context) {
	profiles, err := h.planning.SafetyStocks(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to compute safety stock", err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *PlanningHandler) GetSafetyStock(c *gin.Context) {
	profile, ok, err := h.planning.SafetyStock(c.Request.Context(), c.Param("sku"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to compute safety stock", err)
		return
	}
	if !ok {
		errorResponse(c, http.StatusNotFound, "no usage history for sku", nil)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *PlanningHandler) GetStatus(c *gin.Context) {
	status, err := h.planning.Status(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PlanningHandler) GetStats(c *gin.Context) {
	stats, err := h.planning.Stats(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *PlanningHandler) ListUploads(c *gin.Context) {
	limit := parsePositiveIntWithDefault(c.Query("limit"), 20)
	uploads, err := h.planning.Uploads(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch uploads", err)
		return
	}
	c.JSON(http.StatusOK, uploads)
}

// ListMasters pages the article master. Query: skip, limit, search.
func (h *PlanningHandler) ListMasters(c *gin.Context) {
	f := domain.MasterFilter{Page: pageParams(c), Search: strings.TrimSpace(c.Query("search"))}
	items, err := h.planning.Masters(c.Request.Context(), f)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch masters", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ListDemand pages forecast lines. Query: skip, limit, codigo,
// fecha_inicio, fecha_fin.
func (h *PlanningHandler) ListDemand(c *gin.Context) {
	f := domain.DemandFilter{Page: pageParams(c), SKU: strings.TrimSpace(c.Query("codigo"))}
	var err error
	if f.From, err = parseDateParam(c, "fecha_inicio"); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid fecha_inicio", err)
		return
	}
	if f.To, err = parseDateParam(c, "fecha_fin"); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid fecha_fin", err)
		return
	}

	rows, err := h.planning.Demand(c.Request.Context(), f)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch demand", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ListMovements pages ledger lines. Query: skip, limit, codigo,
// clase_movimiento, fecha_inicio, fecha_fin.
func (h *PlanningHandler) ListMovements(c *gin.Context) {
	f := domain.MovementFilter{
		Page:  pageParams(c),
		SKU:   strings.TrimSpace(c.Query("codigo")),
		Class: strings.ToUpper(strings.TrimSpace(c.Query("clase_movimiento"))),
	}
	var err error
	if f.From, err = parseDateParam(c, "fecha_inicio"); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid fecha_inicio", err)
		return
	}
	if f.To, err = parseDateParam(c, "fecha_fin"); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid fecha_fin", err)
		return
	}

	rows, err := h.planning.Movements(c.Request.Context(), f)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to fetch movements", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
