package availability

// Row is one upstream record describing a room type's per-day state across a
// fetched window. Several rows may cover the same room type when the
// requested range spans multiple upstream windows.
type Row struct {
	RoomTypeID   string
	RoomTypeName string
	Currency     string

	// MinNights/MaxNights are room-level stay-bound defaults, applied to a
	// day only when it has no per-day override.
	MinNights *int
	MaxNights *int

	Details []Day
}

// Day is one raw per-date detail record inside a Row.
type Day struct {
	Date string

	// Status is the upstream status keyword, e.g. "available" or "soldout".
	Status string

	// Inventory is the raw availability/inventory indicator. Upstream sends
	// it as "1"/"0", a count, or occasionally a keyword.
	Inventory string

	// Price is the raw nightly price, possibly with currency noise.
	Price string

	// MinStay/MaxStay are per-day stay-bound overrides.
	MinStay *int
	MaxStay *int
}

// Defaults are the request-level stay bounds used when neither a day nor its
// room supplies one.
type Defaults struct {
	MinNights int `json:"minNights"`
	MaxNights int `json:"maxNights"`
}

// Normalized is the canonical per-date view for one scope (whole hotel or a
// single room type). Map keys are ISO dates; dates with no positive price
// are absent from DailyPrices, never zero.
type Normalized struct {
	DailyPrices  map[string]float64 `json:"dailyPrices"`
	Availability map[string]int     `json:"availability"`
	MinStay      map[string]int     `json:"minStay"`
	MaxStay      map[string]int     `json:"maxStay"`
	Defaults     Defaults           `json:"defaults"`
}

// RoomTypeResult is the normalized view of one room type.
type RoomTypeResult struct {
	RoomTypeID   string `json:"roomTypeId"`
	RoomTypeName string `json:"roomTypeName,omitempty"`
	CurrencyCode string `json:"currencyCode,omitempty"`
	Normalized
}

// RoomTypeRef identifies a room type observed in the input rows.
type RoomTypeRef struct {
	RoomTypeID   string `json:"roomTypeId"`
	RoomTypeName string `json:"roomTypeName,omitempty"`
}

// Result is the full output of Normalize: the hotel-level aggregate plus the
// per-room-type views, covering every requested date.
type Result struct {
	Aggregated   Normalized
	ByRoomType   map[string]RoomTypeResult
	RoomTypes    []RoomTypeRef
	CurrencyCode string
}
