package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/brightstay/membership-api/pkg/apperr"
	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/booking"
	"github.com/brightstay/membership-api/pkg/response"
	"github.com/brightstay/membership-api/pkg/validator"
)

type calendarQuery struct {
	// HotelNo is the upstream hotel code (GSL, BGVPA, ...); HotelID is the
	// numeric fallback. One of the two is required.
	HotelID   string `form:"hotelId"`
	HotelNo   string `form:"hotelNo"`
	StartDate string `form:"startDate" binding:"required,isodate"`
	EndDate   string `form:"endDate" binding:"required,isodate"`
	Currency  string `form:"currency"`
}

func registerCalendar(g *gin.RouterGroup, deps Deps) {
	g.GET("/availability", calendarAvailability(deps))
}

func calendarAvailability(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		noStore(ctx)

		q, appErr := validator.BindQuery[calendarQuery](deps.Validator, ctx)
		if appErr != nil {
			response.JSONError(ctx, appErr)
			return
		}
		if q.HotelID == "" && q.HotelNo == "" {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).
				WithMessage("hotelId or hotelNo is required"))
			return
		}
		if _, _, err := availability.ParseDateRange(q.StartDate, q.EndDate); err != nil {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).WithMessage(err.Error()))
			return
		}

		result, err := deps.Service.CalendarAvailability(ctx.Request.Context(), booking.CalendarQuery{
			HotelID:   q.HotelID,
			HotelNo:   q.HotelNo,
			StartDate: q.StartDate,
			EndDate:   q.EndDate,
			Currency:  q.Currency,
		})
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}

		response.JSONSuccess(ctx, 0, result, map[string]interface{}{
			"range": map[string]string{"startDate": q.StartDate, "endDate": q.EndDate},
		})
	}
}
