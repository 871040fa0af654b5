package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/service"
)

const (
	locBody  = "body"
	locQuery = "query"
	locPath  = "path"
)

var validatorOnce sync.Once

// SetupValidator makes binding errors report JSON and form field names instead of Go names
func SetupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

// statusFor maps a service error kind to an HTTP status
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindUnprocessable:
		return http.StatusUnprocessableEntity
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"detail": ...}. Errors that are not service errors are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "Internal server error"})
		return
	}

	status := statusFor(svcErr.Kind)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Detail: svcErr.Message})
}

// respondBindingError writes a 422 for a request that failed binding or validation
func respondBindingError(c *gin.Context, loc string, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]dto.FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, dto.FieldError{
				Loc: []string{loc, fe.Field()},
				Msg: fieldMessage(fe),
			})
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Detail: details})
		return
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
		Detail: []dto.FieldError{{Loc: []string{loc}, Msg: err.Error()}},
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "max":
		return fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
