package handler

import (
	"net/http"

	"logospos/internal/dto"
	"logospos/internal/service"

	"github.com/gin-gonic/gin"
)

type CuentasHandler struct{ svc service.CuentaService }

func NewCuentasHandler(svc service.CuentaService) *CuentasHandler {
	return &CuentasHandler{svc: svc}
}

// Crear godoc
// @Summary Registra una cuenta por cobrar
// @Tags cuentas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearCuentaRequest true "Cuenta"
// @Success 201 {object} dto.CuentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cuentas [post]
func (h *CuentasHandler) Crear(c *gin.Context) {
	var req dto.CrearCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Lista cuentas por cobrar por fecha de vencimiento
// @Tags cuentas
// @Produce json
// @Security BearerAuth
// @Param estado query string false "pendiente | parcial | pagada | vencida | all"
// @Param cliente_id query string false "Filtra por cliente"
// @Success 200 {array} dto.CuentaResponse
// @Router /v1/cuentas [get]
func (h *CuentasHandler) Listar(c *gin.Context) {
	var f dto.CuentaFilter
	if !bindQuery(c, &f) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Listar(c.Request.Context(), f))
}

// Resumen godoc
// @Summary Totales pendientes por estado
// @Tags cuentas
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ResumenCuentasResponse
// @Router /v1/cuentas/resumen [get]
func (h *CuentasHandler) Resumen(c *gin.Context) {
	resp, err := h.svc.Resumen(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerPorID godoc
// @Summary Cuenta con su historial de pagos
// @Tags cuentas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de cuenta"
// @Success 200 {object} dto.CuentaConPagosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cuentas/{id} [get]
func (h *CuentasHandler) ObtenerPorID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerConPagos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarPago godoc
// @Summary Aplica un pago a una cuenta por cobrar
// @Tags cuentas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de cuenta"
// @Param body body dto.RegistrarPagoRequest true "Pago"
// @Success 201 {object} dto.AplicarPagoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cuentas/{id}/pagos [post]
func (h *CuentasHandler) RegistrarPago(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.RegistrarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AplicarPago(c.Request.Context(), op, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
