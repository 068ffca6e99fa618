package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/metasphere"
)

// fakeClient scripts per-window status rows and quote rows.
type fakeClient struct {
	statusFn func(hotelID, start, end string) ([]availability.Row, error)
	rateFn   func(q metasphere.RateQuery) ([]metasphere.QuoteRow, error)

	statusCalls [][2]string
}

func (f *fakeClient) RateAndStatus(ctx context.Context, hotelID, start, end string) ([]availability.Row, error) {
	f.statusCalls = append(f.statusCalls, [2]string{start, end})
	return f.statusFn(hotelID, start, end)
}

func (f *fakeClient) RateAndAvailability(ctx context.Context, q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
	return f.rateFn(q)
}

func dayRow(roomType, name, date, status, inventory, price string) availability.Row {
	return availability.Row{
		RoomTypeID:   roomType,
		RoomTypeName: name,
		Currency:     "CAD",
		Details: []availability.Day{
			{Date: date, Status: status, Inventory: inventory, Price: price},
		},
	}
}

func TestServiceSplitsLongRangesIntoWindows(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{dayRow("RT1", "Suite", start, "available", "1", "100")}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	// 180 days: two 90-day windows.
	_, err := svc.ResortAvailability(context.Background(), ResortQuery{
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})
	require.NoError(t, err)
	require.Len(t, fc.statusCalls, 2)
	assert.Equal(t, [2]string{"2025-01-01", "2025-04-01"}, fc.statusCalls[0])
	assert.Equal(t, [2]string{"2025-04-01", "2025-06-30"}, fc.statusCalls[1])
}

func TestServiceSkipsFailedWindows(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			if start == "2025-01-01" {
				return nil, &metasphere.UpstreamError{Flag: "1", Result: "fail", Message: "window rejected"}
			}
			return []availability.Row{dayRow("RT1", "Suite", start, "available", "1", "100")}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	view, err := svc.ResortAvailability(context.Background(), ResortQuery{
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})
	require.NoError(t, err, "a business-rejected window degrades, not fails")
	assert.Equal(t, 1, view.Availability["2025-04-01"])
	assert.Equal(t, 0, view.Availability["2025-01-05"], "rejected window's dates fall back to unavailable")
}

func TestServiceTransportErrorsAbort(t *testing.T) {
	boom := errors.New("connection reset")
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) { return nil, boom },
	}
	svc := NewService(ServiceConfig{Client: fc})

	_, err := svc.ResortAvailability(context.Background(), ResortQuery{
		StartDate: "2025-01-01",
		EndDate:   "2025-01-05",
	})
	require.ErrorIs(t, err, boom)
}

func TestServiceResortAvailabilityRoomTypeFallback(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{
				dayRow("RT1", "Suite", "2025-03-10", "available", "1", "120"),
				dayRow("RT2", "Cabin", "2025-03-10", "soldout", "0", "90"),
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	// Known room type: its own view.
	view, err := svc.ResortAvailability(context.Background(), ResortQuery{
		StartDate: "2025-03-10", EndDate: "2025-03-11", RoomTypeID: "RT2",
	})
	require.NoError(t, err)
	assert.Equal(t, "RT2", view.RoomTypeID)
	assert.Equal(t, 0, view.Availability["2025-03-10"])

	// Unknown room type: hotel aggregate, no room type marker.
	view, err = svc.ResortAvailability(context.Background(), ResortQuery{
		StartDate: "2025-03-10", EndDate: "2025-03-11", RoomTypeID: "ZZZ",
	})
	require.NoError(t, err)
	assert.Empty(t, view.RoomTypeID)
	assert.Equal(t, 1, view.Availability["2025-03-10"])
	assert.Equal(t, 120.0, view.DailyPrices["2025-03-10"])
}

func TestServiceCalendarStrictClickableRule(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{
				{RoomTypeID: "RT1", Currency: "CAD", Details: []availability.Day{
					// Inventory 1 but status not "available": not clickable.
					{Date: "2025-03-10", Status: "open", Inventory: "1", Price: "100"},
					// Both conditions met: clickable.
					{Date: "2025-03-11", Status: "available", Inventory: "1", Price: "110"},
					// Status available but no inventory flag: not clickable.
					{Date: "2025-03-12", Status: "available", Inventory: "0", Price: "90"},
				}},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	res, err := svc.CalendarAvailability(context.Background(), CalendarQuery{
		HotelNo: "GSL", StartDate: "2025-03-10", EndDate: "2025-03-13",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Availability["2025-03-10"])
	assert.Equal(t, 1, res.Availability["2025-03-11"])
	assert.Equal(t, 0, res.Availability["2025-03-12"])

	require.Len(t, res.Days, 3)
	assert.Equal(t, "2025-03-10", res.Days[0].Date)
	assert.Equal(t, "2025-03-12", res.Days[2].Date)
	require.NotNil(t, res.Days[0].Price)
	assert.Equal(t, 100.0, *res.Days[0].Price)
	assert.Equal(t, "GSL", res.HotelID)
	assert.Equal(t, "CAD", res.CurrencyCode)
}

func TestServiceRoomTypesDistinctAndSorted(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{
				dayRow("Z1", "Birch Cabin", start, "available", "1", "100"),
				dayRow("A2", "Alpine Loft", start, "available", "1", "100"),
				dayRow("Z1", "Birch Cabin", start, "available", "1", "100"),
				dayRow("", "", start, "available", "1", "100"),
			}, nil
		},
	}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(ServiceConfig{Client: fc, Now: func() time.Time { return now }})

	list, err := svc.RoomTypes(context.Background())
	require.NoError(t, err)

	require.Len(t, list.RoomTypes, 2, "duplicates and blank IDs are dropped")
	assert.Equal(t, "Alpine Loft", list.RoomTypes[0].RoomTypeName)
	assert.Equal(t, "Birch Cabin", list.RoomTypes[1].RoomTypeName)

	require.Len(t, fc.statusCalls, 1)
	assert.Equal(t, [2]string{"2025-03-01", "2025-03-31"}, fc.statusCalls[0])
}

func TestServiceSearchAggregates(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{
				{RoomTypeID: "RT1", Currency: "CAD", Details: []availability.Day{
					{Date: "2025-03-10", Status: "available", Inventory: "1", Price: "100"},
					{Date: "2025-03-11", Status: "soldout", Inventory: "0", Price: "90"},
				}},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	res, err := svc.Search(context.Background(), StayQuery{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-12",
		Guests:    GuestCounts{Adults: 2, Pet: "no"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.AvailableNights)
	assert.Equal(t, 1, res.RoomTypeCount)
	assert.Equal(t, 190.0, res.BaseQualifiedRate.TotalPrice)
	assert.Equal(t, 2, res.BaseQualifiedRate.NightlyCount)
}

func TestServiceResultsPerRoomTypeTotals(t *testing.T) {
	fc := &fakeClient{
		statusFn: func(hotelID, start, end string) ([]availability.Row, error) {
			return []availability.Row{
				{RoomTypeID: "RT1", RoomTypeName: "Suite", Currency: "CAD", Details: []availability.Day{
					{Date: "2025-03-10", Status: "available", Inventory: "1", Price: "100"},
					{Date: "2025-03-11", Status: "available", Inventory: "1", Price: "120"},
				}},
				{RoomTypeID: "RT2", RoomTypeName: "Cabin", Currency: "CAD", Details: []availability.Day{
					{Date: "2025-03-10", Status: "available", Inventory: "1", Price: "80"},
				}},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	page, err := svc.Results(context.Background(), StayQuery{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-12",
	})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)

	// Sorted by room name: Cabin then Suite.
	assert.Equal(t, "RT2", page.Rows[0].RoomTypeID)
	assert.Equal(t, 80.0, page.Rows[0].TotalPrice)
	assert.Equal(t, "RT1", page.Rows[1].RoomTypeID)
	assert.Equal(t, 220.0, page.Rows[1].TotalPrice)
}

func TestServiceQuote(t *testing.T) {
	fc := &fakeClient{
		rateFn: func(q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
			assert.Equal(t, "CBE", q.HotelID)
			assert.Equal(t, 2, q.Adults)
			assert.Equal(t, "yes", q.Pet)
			assert.Equal(t, "CAD", q.Currency)
			return []metasphere.QuoteRow{
				{
					Row: availability.Row{
						RoomTypeID:   "RT1",
						RoomTypeName: "Lakeside Suite",
						Details: []availability.Day{
							{Date: "2025-03-10", Price: "180"},
							{Date: "2025-03-11", Price: "200"},
						},
					},
					TotalPrice:  999,
					PetFee:      25,
					CleaningFee: 80,
					VAT:         50,
					GrossAmount: 535,
				},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	quote, err := svc.Quote(context.Background(), QuoteQuery{
		StartDate:  "2025-03-10",
		EndDate:    "2025-03-12",
		RoomTypeID: "RT1",
		Guests:     GuestCounts{Adults: 2, Pet: "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 380.0, quote.RoomSubtotal, "subtotal sums nightly prices, not the upstream total")
	assert.Equal(t, 25.0, quote.PetFeeAmount)
	assert.Equal(t, 80.0, quote.CleaningFeeAmount)
	assert.Equal(t, 50.0, quote.VATAmount)
	assert.Equal(t, 535.0, quote.GrossAmountUpstream)
	assert.Equal(t, "Lakeside Suite", quote.RoomTypeName)
	assert.Equal(t, "RT1", quote.BookingIdentifiers.RoomTypeID)
	assert.Equal(t, "yes", quote.BookingIdentifiers.Pet)
}

func TestServiceQuoteTrimsRequestedRoomType(t *testing.T) {
	fc := &fakeClient{
		rateFn: func(q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
			// Upstream IDs carry stray whitespace and are trimmed before
			// matching; the requested ID gets the same treatment.
			return []metasphere.QuoteRow{
				{Row: availability.Row{RoomTypeID: " RT1 "}, TotalPrice: 540},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	quote, err := svc.Quote(context.Background(), QuoteQuery{
		StartDate: "2025-03-10", EndDate: "2025-03-12", RoomTypeID: " RT1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, 540.0, quote.RoomSubtotal)
}

func TestServiceQuoteUnknownRoomType(t *testing.T) {
	fc := &fakeClient{
		rateFn: func(q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
			return []metasphere.QuoteRow{{Row: availability.Row{RoomTypeID: "RT1"}}}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	_, err := svc.Quote(context.Background(), QuoteQuery{
		StartDate: "2025-03-10", EndDate: "2025-03-12", RoomTypeID: "ZZZ",
	})

	var nf *RoomTypeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ZZZ", nf.RoomTypeID)
}

func TestServiceQuoteSubtotalFallsBackToRowTotal(t *testing.T) {
	fc := &fakeClient{
		rateFn: func(q metasphere.RateQuery) ([]metasphere.QuoteRow, error) {
			return []metasphere.QuoteRow{
				{Row: availability.Row{RoomTypeID: "RT1"}, TotalPrice: 540},
			}, nil
		},
	}
	svc := NewService(ServiceConfig{Client: fc})

	quote, err := svc.Quote(context.Background(), QuoteQuery{
		StartDate: "2025-03-10", EndDate: "2025-03-12", RoomTypeID: "RT1",
	})
	require.NoError(t, err)
	assert.Equal(t, 540.0, quote.RoomSubtotal)
}

func TestNormalizeYesNo(t *testing.T) {
	assert.Equal(t, "yes", NormalizeYesNo("1", "no"))
	assert.Equal(t, "yes", NormalizeYesNo("TRUE", "no"))
	assert.Equal(t, "no", NormalizeYesNo("0", "yes"))
	assert.Equal(t, "no", NormalizeYesNo("False", "yes"))
	assert.Equal(t, "no", NormalizeYesNo("", "no"))
	assert.Equal(t, "no", NormalizeYesNo("maybe", "no"))
}
