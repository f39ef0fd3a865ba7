package handler

import (
	"net/http"
	"strconv"

	"logospos/internal/dto"
	"logospos/internal/service"

	"github.com/gin-gonic/gin"
)

type RecordatoriosHandler struct {
	svc                 service.RecordatorioService
	horizontePorDefecto int
}

// NewRecordatoriosHandler takes the configured scheduling horizon used when a
// request does not carry one.
func NewRecordatoriosHandler(svc service.RecordatorioService, horizonteDias int) *RecordatoriosHandler {
	return &RecordatoriosHandler{svc: svc, horizontePorDefecto: horizonteDias}
}

// Crear godoc
// @Summary Programa un recordatorio manual
// @Tags recordatorios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearRecordatorioRequest true "Recordatorio"
// @Success 201 {object} dto.RecordatorioResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/recordatorios [post]
func (h *RecordatoriosHandler) Crear(c *gin.Context) {
	var req dto.CrearRecordatorioRequest
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
// @Summary Lista recordatorios
// @Tags recordatorios
// @Produce json
// @Security BearerAuth
// @Param estado query string false "pendiente | enviado | fallido | cancelado | all"
// @Param canal query string false "whatsapp | email | sms | llamada"
// @Param cuenta_id query string false "Filtra por cuenta"
// @Success 200 {object} dto.RecordatorioListResponse
// @Router /v1/recordatorios [get]
func (h *RecordatoriosHandler) Listar(c *gin.Context) {
	var f dto.RecordatorioFilter
	if !bindQuery(c, &f) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Listar(c.Request.Context(), f))
}

// Programar godoc
// @Summary Programa recordatorios de vencimiento proximo
// @Tags recordatorios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ProgramarRecordatoriosRequest false "Horizonte en dias"
// @Success 200 {object} dto.ProgramarRecordatoriosResponse
// @Router /v1/recordatorios/programar [post]
func (h *RecordatoriosHandler) Programar(c *gin.Context) {
	var req dto.ProgramarRecordatoriosRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	horizonte := h.horizontePorDefecto
	if req.HorizonteDias != nil {
		horizonte = *req.HorizonteDias
	}
	resp, err := h.svc.ProgramarVencimientos(c.Request.Context(), horizonte)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Enviar godoc
// @Summary Envia un recordatorio pendiente
// @Tags recordatorios
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de recordatorio"
// @Param async query bool false "Encola el envio en lugar de esperarlo"
// @Success 200 {object} dto.RecordatorioResponse
// @Success 202
// @Failure 409 {object} apierror.APIError
// @Router /v1/recordatorios/{id}/enviar [post]
func (h *RecordatoriosHandler) Enviar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if err := h.svc.Encolar(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": id.String(), "encolado": true})
		return
	}
	resp, err := h.svc.Enviar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary Cancela un recordatorio pendiente
// @Tags recordatorios
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de recordatorio"
// @Success 200 {object} dto.RecordatorioResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/recordatorios/{id}/cancelar [post]
func (h *RecordatoriosHandler) Cancelar(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
