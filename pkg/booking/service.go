// Package booking is the service layer between the HTTP routes and the
// Metasphere client: it splits long ranges into upstream-sized windows,
// collects rows, and shapes them into the responses the frontend consumes.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/cache"
	"github.com/brightstay/membership-api/pkg/logger"
	"github.com/brightstay/membership-api/pkg/metasphere"
)

const (
	// DefaultHotelID is the resort's upstream hotel code.
	DefaultHotelID = "CBE"

	// roomTypeLookahead is the window scanned when listing room types.
	roomTypeLookahead = 30
)

// RateClient is the slice of the Metasphere client the service needs.
type RateClient interface {
	RateAndStatus(ctx context.Context, hotelID, startTime, endTime string) ([]availability.Row, error)
	RateAndAvailability(ctx context.Context, q metasphere.RateQuery) ([]metasphere.QuoteRow, error)
}

// Service answers availability, search, and quote queries for one resort.
type Service struct {
	client  RateClient
	cache   *cache.ResponseCache
	log     logger.LogManager
	hotelID string
	now     func() time.Time
}

// ServiceConfig wires a Service. Cache is optional; a nil cache disables
// response caching.
type ServiceConfig struct {
	Client  RateClient
	Cache   *cache.ResponseCache
	Logger  logger.LogManager
	HotelID string
	Now     func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		client:  cfg.Client,
		cache:   cfg.Cache,
		log:     cfg.Logger,
		hotelID: cfg.HotelID,
		now:     cfg.Now,
	}
	if s.hotelID == "" {
		s.hotelID = DefaultHotelID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RoomTypeNotFoundError reports a quote request for a room type the upstream
// did not return.
type RoomTypeNotFoundError struct {
	RoomTypeID string
	HotelID    string
}

func (e *RoomTypeNotFoundError) Error() string {
	return fmt.Sprintf("roomTypeId '%s' was not found for hotel '%s'", e.RoomTypeID, e.HotelID)
}

// statusRows fetches per-day status rows across the full range, one upstream
// call per 90-day window. A window whose envelope reports a business failure
// is skipped with a warning; transport and auth failures abort the whole
// fetch.
func (s *Service) statusRows(ctx context.Context, hotelID, start, end string) ([]availability.Row, error) {
	windows := availability.SplitWindows(start, end, availability.MaxWindowDays)
	var all []availability.Row

	for _, win := range windows {
		rows, err := s.client.RateAndStatus(ctx, hotelID, win.Start, win.End)
		if err != nil {
			var ue *metasphere.UpstreamError
			if errors.As(err, &ue) {
				if s.log != nil {
					s.log.WarnFCtx(ctx, "skipping window %s..%s: upstream flag=%s result=%s message=%q",
						win.Start, win.End, ue.Flag, ue.Result, ue.Message)
				}
				continue
			}
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// NormalizeYesNo maps the many truthy/falsy spellings the frontend sends to
// the "yes"/"no" the upstream expects.
func NormalizeYesNo(v, def string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true":
		return "yes"
	case "0", "no", "false":
		return "no"
	}
	return def
}

func normalizeCurrency(v string) string {
	c := strings.ToUpper(strings.TrimSpace(v))
	if c == "" {
		return "CAD"
	}
	return c
}

// GuestCounts is the party composition sent to the upstream rate endpoint.
type GuestCounts struct {
	Adults   int    `json:"adult"`
	Children int    `json:"child"`
	Infants  int    `json:"infant"`
	Pet      string `json:"pet"`
}

// CalendarQuery asks for the booking-calendar view of one hotel.
type CalendarQuery struct {
	HotelID   string
	HotelNo   string
	StartDate string
	EndDate   string
	Currency  string
}

// CalendarDay is one calendar cell. Price is nil for dates with no positive
// nightly rate.
type CalendarDay struct {
	Date      string   `json:"date"`
	Available bool     `json:"available"`
	Price     *float64 `json:"price"`
}

// CalendarResult is the calendar payload: per-date maps plus the ordered day
// list the date picker renders.
type CalendarResult struct {
	HotelID      string             `json:"hotelId"`
	CurrencyCode string             `json:"currencyCode"`
	DailyPrices  map[string]float64 `json:"dailyPrices"`
	Availability map[string]int     `json:"availability"`
	Days         []CalendarDay      `json:"days"`
}

// CalendarAvailability builds the calendar view. A date is marked clickable
// only when a row reports inventory "1" with an explicit "available" status;
// the price shown is the cheapest positive rate seen for the date.
func (s *Service) CalendarAvailability(ctx context.Context, q CalendarQuery) (*CalendarResult, error) {
	hotelID := strings.TrimSpace(q.HotelNo)
	if hotelID == "" {
		hotelID = strings.TrimSpace(q.HotelID)
	}
	ccy := normalizeCurrency(q.Currency)

	key := fmt.Sprintf("calendar:%s:%s:%s:%s", hotelID, q.StartDate, q.EndDate, ccy)
	var cached CalendarResult
	if s.cache.Enabled() && s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.statusRows(ctx, hotelID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	type calEntry struct {
		available bool
		minPrice  *float64
	}
	byDate := map[string]*calEntry{}
	lastCurrency := ccy

	for _, row := range rows {
		if row.Currency != "" {
			lastCurrency = row.Currency
		}
		for _, d := range row.Details {
			date := d.Date
			if len(date) > 10 {
				date = date[:10]
			}
			if date == "" {
				continue
			}
			entry := byDate[date]
			if entry == nil {
				entry = &calEntry{}
				byDate[date] = entry
			}
			if strings.TrimSpace(d.Inventory) == "1" &&
				strings.EqualFold(strings.TrimSpace(d.Status), "available") {
				entry.available = true
			}
			if price := availability.ParsePrice(d.Price); price > 0 {
				if entry.minPrice == nil || price < *entry.minPrice {
					p := price
					entry.minPrice = &p
				}
			}
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := &CalendarResult{
		HotelID:      hotelID,
		CurrencyCode: lastCurrency,
		DailyPrices:  map[string]float64{},
		Availability: map[string]int{},
		Days:         make([]CalendarDay, 0, len(dates)),
	}
	for _, date := range dates {
		entry := byDate[date]
		avail := 0
		if entry.available {
			avail = 1
		}
		out.Availability[date] = avail
		if entry.minPrice != nil {
			out.DailyPrices[date] = *entry.minPrice
		}
		out.Days = append(out.Days, CalendarDay{Date: date, Available: entry.available, Price: entry.minPrice})
	}

	s.cache.SetJSON(ctx, key, out)
	return out, nil
}

// RoomTypeList names the room types observed over the lookahead window.
type RoomTypeList struct {
	HotelID   string                     `json:"hotelId"`
	RoomTypes []availability.RoomTypeRef `json:"roomTypes"`
}

// RoomTypes lists the distinct room types the upstream reports over the next
// thirty days, sorted by name.
func (s *Service) RoomTypes(ctx context.Context) (*RoomTypeList, error) {
	today := s.now().UTC()
	start := today.Format(availability.ISODate)
	end := today.AddDate(0, 0, roomTypeLookahead).Format(availability.ISODate)

	rows, err := s.statusRows(ctx, s.hotelID, start, end)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	refs := make([]availability.RoomTypeRef, 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.RoomTypeID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, availability.RoomTypeRef{
			RoomTypeID:   id,
			RoomTypeName: strings.TrimSpace(r.RoomTypeName),
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].RoomTypeName != refs[j].RoomTypeName {
			return refs[i].RoomTypeName < refs[j].RoomTypeName
		}
		return refs[i].RoomTypeID < refs[j].RoomTypeID
	})

	return &RoomTypeList{HotelID: s.hotelID, RoomTypes: refs}, nil
}

// ResortQuery asks for the normalized availability view of the resort.
type ResortQuery struct {
	StartDate  string
	EndDate    string
	RoomTypeID string
	Currency   string
}

// AvailabilityView is the normalized per-date view returned to the frontend.
// RoomTypeID is empty when the view is the whole-hotel aggregate.
type AvailabilityView struct {
	HotelID      string                `json:"hotelId"`
	HotelNo      string                `json:"hotelNo"`
	RoomTypeID   string                `json:"roomTypeId,omitempty"`
	CurrencyCode string                `json:"currencyCode"`
	DailyPrices  map[string]float64    `json:"dailyPrices"`
	Availability map[string]int        `json:"availability"`
	MinStay      map[string]int        `json:"minStay"`
	MaxStay      map[string]int        `json:"maxStay"`
	Defaults     availability.Defaults `json:"defaults"`
}

// ResortAvailability returns the normalized view for one room type, or the
// hotel-level aggregate when no room type is requested or the requested one
// is absent from the rows.
func (s *Service) ResortAvailability(ctx context.Context, q ResortQuery) (*AvailabilityView, error) {
	ccy := normalizeCurrency(q.Currency)
	roomTypeID := strings.TrimSpace(q.RoomTypeID)

	key := fmt.Sprintf("resort:%s:%s:%s:%s:%s", s.hotelID, q.StartDate, q.EndDate, roomTypeID, ccy)
	var cached AvailabilityView
	if s.cache.Enabled() && s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.statusRows(ctx, s.hotelID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	res, err := availability.Normalize(rows, q.StartDate, q.EndDate, ccy)
	if err != nil {
		return nil, err
	}

	view := &AvailabilityView{
		HotelID:      s.hotelID,
		HotelNo:      s.hotelID,
		CurrencyCode: res.CurrencyCode,
	}
	if rt, ok := res.ByRoomType[roomTypeID]; roomTypeID != "" && ok {
		view.RoomTypeID = roomTypeID
		if rt.CurrencyCode != "" {
			view.CurrencyCode = rt.CurrencyCode
		}
		view.DailyPrices = rt.DailyPrices
		view.Availability = rt.Availability
		view.MinStay = rt.MinStay
		view.MaxStay = rt.MaxStay
		view.Defaults = rt.Defaults
	} else {
		view.DailyPrices = res.Aggregated.DailyPrices
		view.Availability = res.Aggregated.Availability
		view.MinStay = res.Aggregated.MinStay
		view.MaxStay = res.Aggregated.MaxStay
		view.Defaults = res.Aggregated.Defaults
	}

	s.cache.SetJSON(ctx, key, view)
	return view, nil
}

// StayQuery is a date range plus party composition.
type StayQuery struct {
	StartDate string
	EndDate   string
	Guests    GuestCounts
	Currency  string
}

// BaseRate summarizes the cheapest bookable path across the stay.
type BaseRate struct {
	TotalPrice   float64            `json:"totalPrice"`
	NightlyCount int                `json:"nightlyCount"`
	DailyPrices  map[string]float64 `json:"dailyPrices"`
}

// SearchResult is the discovery summary for a stay query.
type SearchResult struct {
	HotelID           string      `json:"hotelId"`
	HotelNo           string      `json:"hotelNo"`
	CheckIn           string      `json:"checkIn"`
	CheckOut          string      `json:"checkOut"`
	Guests            GuestCounts `json:"guests"`
	CurrencyCode      string      `json:"currencyCode"`
	RoomTypeCount     int         `json:"roomTypeCount"`
	AvailableNights   int         `json:"availableNights"`
	BaseQualifiedRate BaseRate    `json:"baseQualifiedRate"`
}

// Search summarizes the stay: how many room types exist, how many of the
// requested nights are bookable, and the from-price across the range.
func (s *Service) Search(ctx context.Context, q StayQuery) (*SearchResult, error) {
	ccy := normalizeCurrency(q.Currency)

	rows, err := s.statusRows(ctx, s.hotelID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	res, err := availability.Normalize(rows, q.StartDate, q.EndDate, ccy)
	if err != nil {
		return nil, err
	}

	var totalFrom float64
	for _, p := range res.Aggregated.DailyPrices {
		totalFrom += p
	}
	availableNights := 0
	for _, v := range res.Aggregated.Availability {
		if v == 1 {
			availableNights++
		}
	}

	return &SearchResult{
		HotelID:         s.hotelID,
		HotelNo:         s.hotelID,
		CheckIn:         q.StartDate,
		CheckOut:        q.EndDate,
		Guests:          q.Guests,
		CurrencyCode:    ccy,
		RoomTypeCount:   len(res.RoomTypes),
		AvailableNights: availableNights,
		BaseQualifiedRate: BaseRate{
			TotalPrice:   totalFrom,
			NightlyCount: len(res.Aggregated.DailyPrices),
			DailyPrices:  res.Aggregated.DailyPrices,
		},
	}, nil
}

// ResultsRow is one room type's normalized view plus its stay total.
type ResultsRow struct {
	HotelID      string                `json:"hotelId"`
	HotelNo      string                `json:"hotelNo"`
	RoomTypeID   string                `json:"roomTypeId"`
	RoomTypeName string                `json:"roomTypeName,omitempty"`
	CurrencyCode string                `json:"currencyCode"`
	DailyPrices  map[string]float64    `json:"dailyPrices"`
	Availability map[string]int        `json:"availability"`
	MinStay      map[string]int        `json:"minStay"`
	MaxStay      map[string]int        `json:"maxStay"`
	Defaults     availability.Defaults `json:"defaults"`
	TotalPrice   float64               `json:"totalPrice"`
}

// ResultsPage is the per-room-type result listing for a stay query.
type ResultsPage struct {
	HotelID      string       `json:"hotelId"`
	HotelNo      string       `json:"hotelNo"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Guests       GuestCounts  `json:"guests"`
	CurrencyCode string       `json:"currencyCode"`
	Rows         []ResultsRow `json:"rows"`
}

// Results returns one normalized row per room type, ordered by room name.
func (s *Service) Results(ctx context.Context, q StayQuery) (*ResultsPage, error) {
	ccy := normalizeCurrency(q.Currency)

	rows, err := s.statusRows(ctx, s.hotelID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	res, err := availability.Normalize(rows, q.StartDate, q.EndDate, ccy)
	if err != nil {
		return nil, err
	}

	page := &ResultsPage{
		HotelID:      s.hotelID,
		HotelNo:      s.hotelID,
		StartDate:    q.StartDate,
		EndDate:      q.EndDate,
		Guests:       q.Guests,
		CurrencyCode: ccy,
		Rows:         make([]ResultsRow, 0, len(res.RoomTypes)),
	}
	for _, ref := range res.RoomTypes {
		rt := res.ByRoomType[ref.RoomTypeID]
		var total float64
		for _, p := range rt.DailyPrices {
			total += p
		}
		rowCcy := rt.CurrencyCode
		if rowCcy == "" {
			rowCcy = ccy
		}
		page.Rows = append(page.Rows, ResultsRow{
			HotelID:      s.hotelID,
			HotelNo:      s.hotelID,
			RoomTypeID:   ref.RoomTypeID,
			RoomTypeName: ref.RoomTypeName,
			CurrencyCode: rowCcy,
			DailyPrices:  rt.DailyPrices,
			Availability: rt.Availability,
			MinStay:      rt.MinStay,
			MaxStay:      rt.MaxStay,
			Defaults:     rt.Defaults,
			TotalPrice:   total,
		})
	}
	return page, nil
}

// QuoteQuery asks for a booking-ready price for one room type.
type QuoteQuery struct {
	StartDate  string
	EndDate    string
	RoomTypeID string
	Guests     GuestCounts
	Currency   string
}

// BookingIdentifiers is the parameter set the booking flow replays verbatim.
type BookingIdentifiers struct {
	HotelID    string `json:"hotelId"`
	HotelNo    string `json:"hotelNo"`
	RoomTypeID string `json:"roomTypeId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	Infant     int    `json:"infant"`
	Pet        string `json:"pet"`
	Currency   string `json:"currency"`
}

// QuoteResult is the guest-qualified price breakdown for one room type.
type QuoteResult struct {
	HotelID             string             `json:"hotelId"`
	HotelNo             string             `json:"hotelNo"`
	RoomTypeID          string             `json:"roomTypeId"`
	RoomTypeName        string             `json:"roomTypeName,omitempty"`
	StartDate           string             `json:"startDate"`
	EndDate             string             `json:"endDate"`
	Adults              int                `json:"adults"`
	Children            int                `json:"children"`
	Infant              int                `json:"infant"`
	Pet                 string             `json:"pet"`
	CurrencyCode        string             `json:"currencyCode"`
	DailyPrices         map[string]float64 `json:"dailyPrices"`
	RoomSubtotal        float64            `json:"roomSubtotal"`
	PetFeeAmount        float64            `json:"petFeeAmount"`
	CleaningFeeAmount   float64            `json:"cleaningFeeAmount"`
	VATAmount           float64            `json:"vatAmount"`
	GrossAmountUpstream float64            `json:"grossAmountUpstream"`
	BookingIdentifiers  BookingIdentifiers `json:"bookingIdentifiers"`
}

// Quote fetches guest-qualified rates and extracts the requested room type's
// nightly prices and fee breakdown. The subtotal is the sum of the nightly
// prices, falling back to the upstream's row total when no details came back.
func (s *Service) Quote(ctx context.Context, q QuoteQuery) (*QuoteResult, error) {
	ccy := normalizeCurrency(q.Currency)
	pet := NormalizeYesNo(q.Guests.Pet, "no")
	wantRoomType := strings.TrimSpace(q.RoomTypeID)

	rows, err := s.client.RateAndAvailability(ctx, metasphere.RateQuery{
		HotelID:   s.hotelID,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Adults:    q.Guests.Adults,
		Children:  q.Guests.Children,
		Infants:   q.Guests.Infants,
		Pet:       pet,
		Currency:  ccy,
	})
	if err != nil {
		return nil, err
	}

	var row *metasphere.QuoteRow
	for i := range rows {
		if strings.TrimSpace(rows[i].RoomTypeID) == wantRoomType {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return nil, &RoomTypeNotFoundError{RoomTypeID: wantRoomType, HotelID: s.hotelID}
	}

	dailyPrices := map[string]float64{}
	for _, d := range row.Details {
		date := d.Date
		if len(date) > 10 {
			date = date[:10]
		}
		if date == "" {
			continue
		}
		dailyPrices[date] = availability.ParsePrice(d.Price)
	}
	var subtotal float64
	for _, p := range dailyPrices {
		subtotal += p
	}
	if subtotal == 0 {
		subtotal = row.TotalPrice
	}

	return &QuoteResult{
		HotelID:             s.hotelID,
		HotelNo:             s.hotelID,
		RoomTypeID:          q.RoomTypeID,
		RoomTypeName:        strings.TrimSpace(row.RoomTypeName),
		StartDate:           q.StartDate,
		EndDate:             q.EndDate,
		Adults:              q.Guests.Adults,
		Children:            q.Guests.Children,
		Infant:              q.Guests.Infants,
		Pet:                 pet,
		CurrencyCode:        ccy,
		DailyPrices:         dailyPrices,
		RoomSubtotal:        subtotal,
		PetFeeAmount:        row.PetFee,
		CleaningFeeAmount:   row.CleaningFee,
		VATAmount:           row.VAT,
		GrossAmountUpstream: row.GrossAmount,
		BookingIdentifiers: BookingIdentifiers{
			HotelID:    s.hotelID,
			HotelNo:    s.hotelID,
			RoomTypeID: q.RoomTypeID,
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
			Adults:     q.Guests.Adults,
			Children:   q.Guests.Children,
			Infant:     q.Guests.Infants,
			Pet:        pet,
			Currency:   ccy,
		},
	}, nil
}
