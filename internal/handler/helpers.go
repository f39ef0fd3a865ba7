package handler

import (
	"errors"
	"net/http"
	"reflect"

	"logospos/internal/apierror"
	"logospos/internal/middleware"
	"logospos/internal/model"
	"logospos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// operador resolves the caller or aborts with 401.
func operador(c *gin.Context) (model.Operador, bool) {
	op, ok := middleware.GetOperador(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
	}
	return op, ok
}

func init() {
	apierror.Registrar(http.StatusBadRequest, "",
		service.ErrMontoInvalido, service.ErrMontoInicialNegativo, service.ErrMontoCeroSinConfirmar,
		service.ErrDescripcionRequerida, service.ErrNotaRequerida, service.ErrTipoMovimientoInvalido,
		service.ErrMetodoPagoRequerido, service.ErrObservacionesRequeridas, service.ErrContactoRequerido,
		service.ErrCanalInvalido, service.ErrIDInvalido, service.ErrFechaInvalida,
	)
	apierror.Registrar(http.StatusNotFound, "",
		service.ErrSesionNoEncontrada, service.ErrCuentaNoEncontrada,
		service.ErrClienteNoEncontrado, service.ErrRecordatorioNoEncontrado,
	)
	apierror.Registrar(http.StatusConflict, apierror.CodeSesionDuplicada, service.ErrSesionDuplicada)
	apierror.Registrar(http.StatusConflict, apierror.CodeSesionNoAbierta, service.ErrSesionNoAbierta)
	apierror.Registrar(http.StatusConflict, apierror.CodeSesionAbierta, service.ErrSesionAbierta)
	apierror.Registrar(http.StatusConflict, apierror.CodePagoExcedePendiente, service.ErrPagoExcedePendiente)
	apierror.Registrar(http.StatusConflict, apierror.CodeRecordatorioFinal, service.ErrRecordatorioTerminal)
	apierror.Registrar(http.StatusConflict, apierror.CodeRecordatorioDoble, service.ErrRecordatorioDuplicado)
	apierror.Registrar(http.StatusConflict, apierror.CodeUsuarioDuplicado, service.ErrUsuarioDuplicado)
	apierror.Registrar(http.StatusUnauthorized, "", service.ErrCredencialesInvalidas, service.ErrRefreshInvalido)
}

// respondError hands err to middleware.ErrorHandler, which picks the status
// from the apierror table.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
