package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/makkenzo/machine-license-api/internal/handler/dto"
	"github.com/makkenzo/machine-license-api/internal/ierr"
	"go.uber.org/zap"
)

const storeUnavailableMessage = "Database not configured"

func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &ve):
			log.Info("Request validation failed", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.APIErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Input validation failed.",
				Details: buildValidationErrors(ve),
			})
		case errors.Is(err, ierr.ErrValidation):
			log.Info("Request rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.APIErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			})
		case errors.Is(err, ierr.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, ierr.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, dto.ErrorResponse{Error: "License not found"})
		case errors.Is(err, ierr.ErrStoreUnavailable):
			log.Warn("Store unavailable", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.StatusMessageResponse{
				Status:  "error",
				Message: storeUnavailableMessage,
			})
		default:
			log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIErrorResponse{
				Code:    "INTERNAL_ERROR",
				Message: err.Error(),
			})
		}
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "gte":
		return fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("Field '%s' must be less than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
