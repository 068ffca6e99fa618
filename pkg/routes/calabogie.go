package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/brightstay/membership-api/pkg/apperr"
	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/booking"
	"github.com/brightstay/membership-api/pkg/response"
	"github.com/brightstay/membership-api/pkg/validator"
)

func registerCalabogie(g *gin.RouterGroup, deps Deps) {
	g.GET("/room-types", calabogieRoomTypes(deps))
	g.GET("/view-all-rooms", calabogieRoomTypes(deps))
	g.GET("/availability", calabogieAvailability(deps))
	g.GET("/search", calabogieSearch(deps))
	g.GET("/results", calabogieResults(deps))
	g.GET("/quote", calabogieQuote(deps))
	g.GET("/meta", calabogieMeta)
}

func calabogieRoomTypes(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		list, err := deps.Service.RoomTypes(ctx.Request.Context())
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}
		response.Success(ctx, list)
	}
}

type resortAvailQuery struct {
	StartDate  string `form:"startDate" binding:"required,isodate"`
	EndDate    string `form:"endDate" binding:"required,isodate"`
	RoomTypeID string `form:"roomTypeId"`
	Currency   string `form:"currency"`
}

func calabogieAvailability(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		noStore(ctx)

		q, appErr := validator.BindQuery[resortAvailQuery](deps.Validator, ctx)
		if appErr != nil {
			response.JSONError(ctx, appErr)
			return
		}
		if _, _, err := availability.ParseDateRange(q.StartDate, q.EndDate); err != nil {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).WithMessage(err.Error()))
			return
		}

		view, err := deps.Service.ResortAvailability(ctx.Request.Context(), booking.ResortQuery{
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
			RoomTypeID: q.RoomTypeID,
			Currency:   q.Currency,
		})
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}
		response.Success(ctx, view)
	}
}

type stayQuery struct {
	// Search accepts checkIn/checkOut with startDate/endDate as aliases.
	CheckIn   string `form:"checkIn"`
	CheckOut  string `form:"checkOut"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`

	Adult    int    `form:"adult,default=1"`
	Child    int    `form:"child"`
	Infant   int    `form:"infant"`
	Pet      string `form:"pet"`
	Currency string `form:"currency"`
}

func (q *stayQuery) dates() (string, string) {
	start := q.CheckIn
	if start == "" {
		start = q.StartDate
	}
	end := q.CheckOut
	if end == "" {
		end = q.EndDate
	}
	return start, end
}

func (q *stayQuery) guests() booking.GuestCounts {
	return booking.GuestCounts{
		Adults:   q.Adult,
		Children: q.Child,
		Infants:  q.Infant,
		Pet:      booking.NormalizeYesNo(q.Pet, "no"),
	}
}

func calabogieSearch(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		q, appErr := validator.BindQuery[stayQuery](deps.Validator, ctx)
		if appErr != nil {
			response.JSONError(ctx, appErr)
			return
		}
		start, end := q.dates()
		if _, _, err := availability.ParseDateRange(start, end); err != nil {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).WithMessage(err.Error()))
			return
		}

		result, err := deps.Service.Search(ctx.Request.Context(), booking.StayQuery{
			StartDate: start,
			EndDate:   end,
			Guests:    q.guests(),
			Currency:  q.Currency,
		})
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}
		response.Success(ctx, result)
	}
}

func calabogieResults(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		noStore(ctx)

		q, appErr := validator.BindQuery[stayQuery](deps.Validator, ctx)
		if appErr != nil {
			response.JSONError(ctx, appErr)
			return
		}
		start, end := q.dates()
		if _, _, err := availability.ParseDateRange(start, end); err != nil {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).WithMessage(err.Error()))
			return
		}

		page, err := deps.Service.Results(ctx.Request.Context(), booking.StayQuery{
			StartDate: start,
			EndDate:   end,
			Guests:    q.guests(),
			Currency:  q.Currency,
		})
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}
		response.Success(ctx, page)
	}
}

type quoteQuery struct {
	StartDate  string `form:"startDate" binding:"required,isodate"`
	EndDate    string `form:"endDate" binding:"required,isodate"`
	RoomTypeID string `form:"roomTypeId" binding:"required"`

	Adult    int    `form:"adult,default=1"`
	Child    int    `form:"child"`
	Infant   int    `form:"infant"`
	Pet      string `form:"pet"`
	Currency string `form:"currency"`
}

func calabogieQuote(deps Deps) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		noStore(ctx)

		q, appErr := validator.BindQuery[quoteQuery](deps.Validator, ctx)
		if appErr != nil {
			response.JSONError(ctx, appErr)
			return
		}
		if _, _, err := availability.ParseDateRange(q.StartDate, q.EndDate); err != nil {
			response.JSONError(ctx, apperr.New(apperr.ErrorCodeValidationFail).WithMessage(err.Error()))
			return
		}

		quote, err := deps.Service.Quote(ctx.Request.Context(), booking.QuoteQuery{
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
			RoomTypeID: q.RoomTypeID,
			Guests: booking.GuestCounts{
				Adults:   q.Adult,
				Children: q.Child,
				Infants:  q.Infant,
				Pet:      q.Pet,
			},
			Currency: q.Currency,
		})
		if err != nil {
			serviceError(ctx, deps.Logger, err)
			return
		}
		response.Success(ctx, quote)
	}
}

// resortMeta is the static resort profile served to the frontend.
type resortMeta struct {
	HotelID     string   `json:"hotelId"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Coordinates latLng   `json:"coordinates"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func calabogieMeta(ctx *gin.Context) {
	response.Success(ctx, resortMeta{
		HotelID: booking.DefaultHotelID,
		Name:    "Calabogie Escapes",
		Address: "504 Barrett Chute Road, Calabogie, ON K0J 1H0, Canada",
		Description: "Calabogie Escapes offers resort-style mountain and lakeside " +
			"accommodations near Calabogie Peaks, with year-round outdoor activities " +
			"and family-friendly stays.",
		Images:      []string{},
		Coordinates: latLng{Lat: 45.294288, Lng: -76.7453235},
	})
}
