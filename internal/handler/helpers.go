package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/abs0914/croffle-store-sync-sub022/internal/apierror"
	"github.com/abs0914/croffle-store-sync-sub022/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
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
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondServiceError maps the engine's error taxonomy onto HTTP statuses.
// Payload detail stays machine-readable so the checkout client can branch
// without parsing strings.
func respondServiceError(c *gin.Context, err error) {
	var precondition *service.PreconditionError
	var validation *service.ValidationErrors
	var insufficient *service.InsufficientStockError
	var storeWrite *service.StoreWriteError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(validation.Items))
	case errors.As(err, &precondition):
		c.JSON(http.StatusBadRequest, apierror.WithCode("precondition_failed", precondition.Reason))
	case errors.Is(err, service.ErrRecipeNotFound):
		c.JSON(http.StatusBadRequest, apierror.WithCode("recipe_not_found", err.Error()))
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"detail":     "insufficient stock",
			"code":       "insufficient_stock",
			"shortfalls": insufficient.Shortfalls,
		})
	case errors.Is(err, service.ErrHealthGateBlocked):
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("health_gate_blocked", "sales temporarily unavailable"))
	case errors.As(err, &storeWrite):
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode("store_write_failed", "inventory store unavailable, retry the sale"))
	default:
		// Unexpected — let ErrorHandler log it and answer 500.
		_ = c.Error(err)
	}
}
