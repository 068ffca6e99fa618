package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/booking"
	"github.com/brightstay/membership-api/pkg/metasphere"
	"github.com/brightstay/membership-api/pkg/provider"
	"github.com/brightstay/membership-api/pkg/validator"
)

type stubClient struct {
	statusErr error
	rows      []availability.Row
	quoteRows []metasphere.QuoteRow
}

func (s *stubClient) RateAndStatus(ctx context.Context, hotelID, start, end string) ([]availability.Row, error) {
	return s.rows, s.statusErr
}

func (s *stubClient) RateAndAvailability(ctx context.Context, q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
	return s.quoteRows, s.statusErr
}

func newTestRouter(t *testing.T, client booking.RateClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	Register(engine, Deps{
		Service:   booking.NewService(booking.ServiceConfig{Client: client}),
		Validator: validator.New(),
	})
	return engine
}

func doGet(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func availableRow(date string) availability.Row {
	return availability.Row{
		RoomTypeID:   "RT1",
		RoomTypeName: "Suite",
		Currency:     "CAD",
		Details: []availability.Day{
			{Date: date, Status: "available", Inventory: "1", Price: "150"},
		},
	}
}

func TestHealthAndVersion(t *testing.T) {
	engine := newTestRouter(t, &stubClient{})

	assert.Equal(t, http.StatusOK, doGet(engine, "/healthz").Code)
	assert.Equal(t, http.StatusOK, doGet(engine, "/version").Code)
}

func TestCalendarAvailabilityValidation(t *testing.T) {
	engine := newTestRouter(t, &stubClient{rows: []availability.Row{availableRow("2025-03-10")}})

	t.Run("missing dates", func(t *testing.T) {
		w := doGet(engine, "/api/calendar/availability?hotelNo=GSL")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})

	t.Run("malformed date", func(t *testing.T) {
		w := doGet(engine, "/api/calendar/availability?hotelNo=GSL&startDate=2025-3-1&endDate=2025-03-10")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		w := doGet(engine, "/api/calendar/availability?hotelNo=GSL&startDate=2025-03-10&endDate=2025-03-01")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("missing hotel", func(t *testing.T) {
		w := doGet(engine, "/api/calendar/availability?startDate=2025-03-01&endDate=2025-03-10")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("valid request", func(t *testing.T) {
		w := doGet(engine, "/api/calendar/availability?hotelNo=GSL&startDate=2025-03-10&endDate=2025-03-12")
		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

		var data booking.CalendarResult
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "GSL", data.HotelID)
		assert.Equal(t, 1, data.Availability["2025-03-10"])
	})
}

func TestResortAvailabilityEndpoint(t *testing.T) {
	engine := newTestRouter(t, &stubClient{rows: []availability.Row{availableRow("2025-03-10")}})

	w := doGet(engine, "/api/calabogie/availability?startDate=2025-03-10&endDate=2025-03-12")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	var data booking.AvailabilityView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, booking.DefaultHotelID, data.HotelID)
	assert.Equal(t, 1, data.Availability["2025-03-10"])
	assert.Equal(t, 0, data.Availability["2025-03-11"])
}

func TestSearchAcceptsCheckInAliases(t *testing.T) {
	engine := newTestRouter(t, &stubClient{rows: []availability.Row{availableRow("2025-03-10")}})

	w := doGet(engine, "/api/calabogie/search?checkIn=2025-03-10&checkOut=2025-03-12&adult=2&pet=1")
	require.Equal(t, http.StatusOK, w.Code)

	var data booking.SearchResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, "2025-03-10", data.CheckIn)
	assert.Equal(t, 2, data.Guests.Adults)
	assert.Equal(t, "yes", data.Guests.Pet)
}

func TestQuoteUnknownRoomTypeIs404(t *testing.T) {
	engine := newTestRouter(t, &stubClient{
		quoteRows: []metasphere.QuoteRow{{Row: availability.Row{RoomTypeID: "RT1"}}},
	})

	w := doGet(engine, "/api/calabogie/quote?startDate=2025-03-10&endDate=2025-03-12&roomTypeId=ZZZ")
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Code)
}

func TestQuoteRequiresRoomType(t *testing.T) {
	engine := newTestRouter(t, &stubClient{})

	w := doGet(engine, "/api/calabogie/quote?startDate=2025-03-10&endDate=2025-03-12")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpstreamAuthFailureMapsToBadGateway(t *testing.T) {
	engine := newTestRouter(t, &stubClient{
		statusErr: &provider.UnauthorizedError{Message: "Token Expired"},
	})

	w := doGet(engine, "/api/calabogie/availability?startDate=2025-03-10&endDate=2025-03-12")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "provider_unauthorized", decodeEnvelope(t, w).Code)
}

func TestUpstreamUnavailableMapsToBadGateway(t *testing.T) {
	engine := newTestRouter(t, &stubClient{statusErr: metasphere.ErrUpstreamUnavailable})

	w := doGet(engine, "/api/calabogie/search?startDate=2025-03-10&endDate=2025-03-12")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_unavailable", decodeEnvelope(t, w).Code)
}

func TestRoomTypesEndpoint(t *testing.T) {
	engine := newTestRouter(t, &stubClient{rows: []availability.Row{availableRow("2025-03-10")}})

	for _, path := range []string{"/api/calabogie/room-types", "/api/calabogie/view-all-rooms"} {
		w := doGet(engine, path)
		require.Equal(t, http.StatusOK, w.Code, path)

		var data booking.RoomTypeList
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
		require.Len(t, data.RoomTypes, 1)
		assert.Equal(t, "RT1", data.RoomTypes[0].RoomTypeID)
	}
}

func TestMetaEndpoint(t *testing.T) {
	engine := newTestRouter(t, &stubClient{})

	w := doGet(engine, "/api/calabogie/meta")
	require.Equal(t, http.StatusOK, w.Code)

	var data resortMeta
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, booking.DefaultHotelID, data.HotelID)
	assert.NotEmpty(t, data.Name)
}
