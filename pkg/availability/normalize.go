package availability

import (
	"sort"
	"strings"
)

// Package availability merges heterogeneous per-day upstream records from
// multiple fetch windows and room types into a canonical per-date view.

const (
	defaultMinNights = 1
	defaultMaxNights = 365
)

// bucket accumulates every contributing row for one date.
type bucket struct {
	available bool
	inventory int

	minAvailablePrice *float64
	minAnyPrice       *float64

	minStay *int
	maxStay *int
}

type dayContribution struct {
	available bool
	inventory int
	price     float64
	min       *int
	max       *int
}

// merge folds one row's contribution into the bucket. Availability is an OR
// across rows; inventory sums; prices keep the minimum positive value per
// pool; stay bounds keep the most permissive combination (smallest min,
// largest max).
func (b *bucket) merge(c dayContribution) {
	if c.available {
		b.available = true
	}
	b.inventory += c.inventory

	if c.price > 0 {
		if b.minAnyPrice == nil || c.price < *b.minAnyPrice {
			p := c.price
			b.minAnyPrice = &p
		}
		if c.available {
			if b.minAvailablePrice == nil || c.price < *b.minAvailablePrice {
				p := c.price
				b.minAvailablePrice = &p
			}
		}
	}

	if c.min != nil && (b.minStay == nil || *c.min < *b.minStay) {
		v := *c.min
		b.minStay = &v
	}
	if c.max != nil && (b.maxStay == nil || *c.max > *b.maxStay) {
		v := *c.max
		b.maxStay = &v
	}
}

// roomAccumulator is the per-room-type working state during a pass.
type roomAccumulator struct {
	id       string
	name     string
	currency string
	byDate   map[string]*bucket
	minDef   *int
	maxDef   *int
}

// Normalize merges raw rows into the hotel-level aggregate and a view per
// room type, covering exactly the dates of [start, end). Dates with no
// contributing row come out unavailable, priceless, with request-level
// default stay bounds. Output date order is always ascending regardless of
// row order.
func Normalize(rows []Row, start, end string, currency string) (*Result, error) {
	s, e, err := ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}
	requested := DatesBetween(s, e)

	lastCurrency := strings.ToUpper(strings.TrimSpace(currency))
	if lastCurrency == "" {
		lastCurrency = "CAD"
	}

	agg := map[string]*bucket{}
	rooms := map[string]*roomAccumulator{}
	var hotelMinDef, hotelMaxDef *int

	for _, row := range rows {
		if row.Currency != "" {
			lastCurrency = row.Currency
		}

		rtID := strings.TrimSpace(row.RoomTypeID)
		if rtID == "" {
			rtID = "unknown"
		}
		room, ok := rooms[rtID]
		if !ok {
			room = &roomAccumulator{id: rtID, byDate: map[string]*bucket{}}
			rooms[rtID] = room
		}
		if room.name == "" {
			room.name = strings.TrimSpace(row.RoomTypeName)
		}
		if room.currency == "" {
			room.currency = row.Currency
		}

		// Room-level defaults fold into the hotel- and room-level fallbacks
		// with the same most-permissive rule as per-date merging.
		if row.MinNights != nil {
			hotelMinDef = keepMin(hotelMinDef, *row.MinNights)
			room.minDef = keepMin(room.minDef, *row.MinNights)
		}
		if row.MaxNights != nil {
			hotelMaxDef = keepMax(hotelMaxDef, *row.MaxNights)
			room.maxDef = keepMax(room.maxDef, *row.MaxNights)
		}

		for _, d := range row.Details {
			date := strings.TrimSpace(d.Date)
			if len(date) > 10 {
				date = date[:10]
			}
			if date == "" {
				continue
			}

			inventory := ParseInventoryCount(d.Inventory)
			contribution := dayContribution{
				available: ResolveAvailability(d.Status, inventory),
				inventory: inventory,
				price:     ParsePrice(d.Price),
			}

			// Stay bounds resolve by priority: per-day override, then
			// room-level default, then the scope-wide default.
			contribution.min = firstOf(d.MinStay, row.MinNights, hotelMinDef)
			contribution.max = firstOf(d.MaxStay, row.MaxNights, hotelMaxDef)
			getBucket(agg, date).merge(contribution)

			contribution.min = firstOf(d.MinStay, row.MinNights, room.minDef)
			contribution.max = firstOf(d.MaxStay, row.MaxNights, room.maxDef)
			getBucket(room.byDate, date).merge(contribution)
		}
	}

	result := &Result{
		Aggregated:   flatten(agg, requested, resolveDefaults(hotelMinDef, hotelMaxDef)),
		ByRoomType:   make(map[string]RoomTypeResult, len(rooms)),
		CurrencyCode: lastCurrency,
	}

	for id, room := range rooms {
		ccy := room.currency
		if ccy == "" {
			ccy = lastCurrency
		}
		result.ByRoomType[id] = RoomTypeResult{
			RoomTypeID:   id,
			RoomTypeName: room.name,
			CurrencyCode: ccy,
			Normalized:   flatten(room.byDate, requested, resolveDefaults(room.minDef, room.maxDef)),
		}
		result.RoomTypes = append(result.RoomTypes, RoomTypeRef{
			RoomTypeID:   id,
			RoomTypeName: room.name,
		})
	}
	sort.Slice(result.RoomTypes, func(i, j int) bool {
		a, b := result.RoomTypes[i], result.RoomTypes[j]
		if a.RoomTypeName != b.RoomTypeName {
			return a.RoomTypeName < b.RoomTypeName
		}
		return a.RoomTypeID < b.RoomTypeID
	})

	return result, nil
}

// flatten renders the per-date buckets over the requested dates. A requested
// date with no bucket still appears, defaulted to unavailable with no price.
func flatten(byDate map[string]*bucket, requested []string, defaults Defaults) Normalized {
	out := Normalized{
		DailyPrices:  make(map[string]float64),
		Availability: make(map[string]int, len(requested)),
		MinStay:      make(map[string]int, len(requested)),
		MaxStay:      make(map[string]int, len(requested)),
		Defaults:     defaults,
	}

	for _, date := range requested {
		b := byDate[date]
		if b == nil {
			b = &bucket{}
		}

		if b.available {
			out.Availability[date] = 1
		} else {
			out.Availability[date] = 0
		}

		// Best price: minimum among available rows, falling back to the
		// minimum among all rows when nothing was available.
		if b.minAvailablePrice != nil {
			out.DailyPrices[date] = *b.minAvailablePrice
		} else if b.minAnyPrice != nil {
			out.DailyPrices[date] = *b.minAnyPrice
		}

		if b.minStay != nil {
			out.MinStay[date] = *b.minStay
		} else {
			out.MinStay[date] = defaults.MinNights
		}
		if b.maxStay != nil {
			out.MaxStay[date] = *b.maxStay
		} else {
			out.MaxStay[date] = defaults.MaxNights
		}
	}

	return out
}

func resolveDefaults(min, max *int) Defaults {
	d := Defaults{MinNights: defaultMinNights, MaxNights: defaultMaxNights}
	if min != nil {
		d.MinNights = *min
	}
	if max != nil {
		d.MaxNights = *max
	}
	return d
}

func getBucket(m map[string]*bucket, date string) *bucket {
	b, ok := m[date]
	if !ok {
		b = &bucket{}
		m[date] = b
	}
	return b
}

func keepMin(cur *int, v int) *int {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}

func keepMax(cur *int, v int) *int {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}

func firstOf(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
