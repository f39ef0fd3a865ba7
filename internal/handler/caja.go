package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"logospos/internal/apierror"
	"logospos/internal/dto"
	"logospos/internal/infra"
	"logospos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sseKeepAlive is how often an idle event stream gets a ping.
const sseKeepAlive = 25 * time.Second

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra una venta, entrada o salida de efectivo
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetActiva godoc
// @Summary Sesion de caja abierta del operador autenticado
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Ignora la consulta en curso y vuelve a leer"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/activa [get]
func (h *CajaHandler) GetActiva(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	resp := h.svc.VerificarSesionAbierta(c.Request.Context(), op.ID, refresh)
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Sin sesión activa"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary Movimientos de una sesion, mas recientes primero
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {array} dto.MovimientoResponse
// @Router /v1/caja/{id}/movimientos [get]
func (h *CajaHandler) ListarMovimientos(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.ListarMovimientos(c.Request.Context(), id))
}

// Totales godoc
// @Summary Totales en vivo de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.TotalesResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/totales [get]
func (h *CajaHandler) Totales(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Totales(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Arqueo godoc
// @Summary Realiza el arqueo y cierra la sesion
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ArqueoRequest true "Conteo por denominacion"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/arqueo [post]
func (h *CajaHandler) Arqueo(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	var req dto.ArqueoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Arqueo(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarNota godoc
// @Summary Agrega una nota correctiva a una sesion cerrada
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.NotaCierreRequest true "Nota"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/{id}/notas [post]
func (h *CajaHandler) AgregarNota(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.NotaCierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarNotaCierre(c.Request.Context(), id, req.Nota)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerReporte godoc
// @Summary Obtiene el reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReportePDF godoc
// @Summary Descarga el reporte de cierre en PDF
// @Tags caja
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte.pdf [get]
func (h *CajaHandler) ReportePDF(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := h.svc.ObtenerReporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="cierre_%s.pdf"`, id))
	if err := infra.WriteReporteCierrePDF(rep, c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// Historial godoc
// @Summary Historial paginado de sesiones
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param page query int false "Pagina"
// @Param limit query int false "Tamaño de pagina"
// @Param todos query bool false "Todas las cajas (supervisores)"
// @Success 200 {object} dto.HistorialResponse
// @Router /v1/caja/historial [get]
func (h *CajaHandler) Historial(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	var f dto.HistorialFilter
	if !bindQuery(c, &f) {
		return
	}
	// Cashiers only ever see their own sessions.
	var operadorID *uuid.UUID
	if !f.Todos || op.Rol == "cajero" {
		operadorID = &op.ID
	}
	c.JSON(http.StatusOK, h.svc.Historial(c.Request.Context(), operadorID, f))
}

// Eventos godoc
// @Summary Stream SSE de cambios de la sesion del operador
// @Tags caja
// @Produce text/event-stream
// @Security BearerAuth
// @Router /v1/caja/eventos [get]
func (h *CajaHandler) Eventos(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	eventos, cancel := h.svc.Store().Subscribe(op.ID)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	// Initial snapshot so a reconnecting client does not wait for the next change.
	if actual := h.svc.VerificarSesionAbierta(c.Request.Context(), op.ID, false); actual != nil {
		c.SSEvent("sesion", actual)
	} else {
		c.SSEvent("sesion", gin.H{"estado": "sin_sesion"})
	}
	c.Writer.Flush()

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, open := <-eventos:
			if !open {
				return false
			}
			c.SSEvent(ev.Tipo, ev)
			return true
		case <-ping.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
