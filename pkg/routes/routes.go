// Package routes wires the HTTP surface: thin gin handlers that validate
// input, call the booking service, and translate its errors into the API
// envelope.
package routes

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/brightstay/membership-api/pkg/apperr"
	"github.com/brightstay/membership-api/pkg/booking"
	"github.com/brightstay/membership-api/pkg/logger"
	"github.com/brightstay/membership-api/pkg/metasphere"
	"github.com/brightstay/membership-api/pkg/provider"
	"github.com/brightstay/membership-api/pkg/response"
	"github.com/brightstay/membership-api/pkg/validator"
)

// Deps carries everything the route handlers need.
type Deps struct {
	Service   *booking.Service
	Validator *validator.Validator
	Logger    logger.LogManager
}

// Register mounts all routes on the engine.
func Register(r *gin.Engine, deps Deps) {
	registerHealth(r)

	api := r.Group("/api")
	registerCalendar(api.Group("/calendar"), deps)
	registerCalabogie(api.Group("/calabogie"), deps)
}

// noStore marks a response uncacheable. Availability payloads go stale
// within minutes, so intermediaries must not hold them.
func noStore(ctx *gin.Context) {
	ctx.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
	ctx.Header("Pragma", "no-cache")
}

// serviceError maps booking/provider failures onto API error codes.
func serviceError(ctx *gin.Context, log logger.LogManager, err error) {
	var notFound *booking.RoomTypeNotFoundError
	var upstream *metasphere.UpstreamError
	var status *provider.StatusError

	var appErr *apperr.AppError
	switch {
	case errors.As(err, &notFound):
		appErr = apperr.New(apperr.ErrorCodeNotFound).WithMessage(notFound.Error())
	case errors.Is(err, metasphere.ErrUpstreamUnavailable):
		appErr = apperr.New(apperr.ErrorCodeUpstreamUnavailable).Wrap(err)
	case provider.IsUnauthorized(err):
		appErr = apperr.New(apperr.ErrorCodeProviderUnauthorized).Wrap(err)
	case errors.As(err, &upstream), errors.As(err, &status):
		appErr = apperr.New(apperr.ErrorCodeUpstreamFailed).Wrap(err)
	default:
		appErr = apperr.New(apperr.ErrorCodeInternal).Wrap(err)
	}

	if log != nil && appErr.HTTPStatus >= 500 {
		log.ErrorFCtx(ctx.Request.Context(), "%s %s failed: %v", ctx.Request.Method, ctx.FullPath(), err)
	}
	response.JSONError(ctx, appErr)
}
