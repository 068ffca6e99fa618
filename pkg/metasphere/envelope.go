package metasphere

import (
	"encoding/json"
	"fmt"

	"github.com/brightstay/membership-api/pkg/availability"
	"github.com/brightstay/membership-api/pkg/provider"
)

// Envelope is the business-call response wrapper. The transport may report
// 200 while flag/result/message encode a semantic failure, including token
// invalidity.
type Envelope struct {
	Flag       rawStr          `json:"flag"` // sent as a string or a bare number depending on endpoint
	Result     rawStr          `json:"result"`
	Message    string          `json:"message"`
	MessageAlt string          `json:"Message"` // upstream casing varies by endpoint
	Response   string          `json:"response"`
	Data       json.RawMessage `json:"data"`
}

// Success reports whether the upstream marked the call successful.
func (e *Envelope) Success() bool {
	return string(e.Flag) == "0" && string(e.Result) == "success"
}

// Unauthorized returns the auth-failure marker when the envelope's text
// fields encode token invalidity despite the 200 transport status.
func (e *Envelope) Unauthorized() *provider.UnauthorizedError {
	return provider.UnauthorizedFromBody(e.Message, e.MessageAlt, e.Response, string(e.Result), string(e.Flag))
}

// DecodeRows parses the envelope's data payload into availability rows. The
// payload is an array of room records or, for single-room responses, a bare
// object. Any other shape is a parse failure, not guessed at.
func DecodeRows(data json.RawMessage) ([]availability.Row, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var raw []rawRoom
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode room rows: %w", err)
		}
		rows := make([]availability.Row, 0, len(raw))
		for _, r := range raw {
			rows = append(rows, r.row())
		}
		return rows, nil
	case '{':
		var raw rawRoom
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode room row: %w", err)
		}
		return []availability.Row{raw.row()}, nil
	default:
		return nil, fmt.Errorf("unexpected data payload shape: %s", snippet(data))
	}
}

func snippet(data []byte) string {
	if len(data) > 64 {
		return string(data[:64]) + "..."
	}
	return string(data)
}

// rawRoom tolerates the upstream's inconsistent field casing. Keys that only
// differ in case are handled by the decoder; underscore variants need the
// explicit alternates below.
type rawRoom struct {
	RoomTypeID   string `json:"roomTypeId"`
	RoomTypeName string `json:"roomTypeName"`
	Currency     string `json:"Currency"`

	MinNights    json.RawMessage `json:"min_Nights"`
	MinNightsAlt json.RawMessage `json:"minNights"`
	MaxNights    json.RawMessage `json:"max_Nights"`
	MaxNightsAlt json.RawMessage `json:"maxNights"`

	Details []rawDay `json:"details"`
}

func (r rawRoom) row() availability.Row {
	row := availability.Row{
		RoomTypeID:   r.RoomTypeID,
		RoomTypeName: r.RoomTypeName,
		Currency:     r.Currency,
		MinNights:    intFromRaw(r.MinNights, r.MinNightsAlt),
		MaxNights:    intFromRaw(r.MaxNights, r.MaxNightsAlt),
	}
	for _, d := range r.Details {
		row.Details = append(row.Details, d.day())
	}
	return row
}

// rawDay is one per-date detail record. The availability indicator appears
// under four different keys across endpoints.
type rawDay struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Price  rawStr `json:"price"`

	IsAvailable  rawStr `json:"isAvailable"`
	Available    rawStr `json:"available"`
	IsAvailShort rawStr `json:"isAvail"`

	MinStay    json.RawMessage `json:"minimum_Stay"`
	MinStayAlt json.RawMessage `json:"minimumStay"`
	MaxStay    json.RawMessage `json:"maximum_Stay"`
	MaxStayAlt json.RawMessage `json:"maximumStay"`
}

func (d rawDay) day() availability.Day {
	inventory := string(d.IsAvailable)
	if inventory == "" {
		inventory = string(d.Available)
	}
	if inventory == "" {
		inventory = string(d.IsAvailShort)
	}
	return availability.Day{
		Date:      d.Date,
		Status:    d.Status,
		Inventory: inventory,
		Price:     string(d.Price),
		MinStay:   intFromRaw(d.MinStay, d.MinStayAlt),
		MaxStay:   intFromRaw(d.MaxStay, d.MaxStayAlt),
	}
}

// rawStr accepts a JSON string or number and keeps its textual form.
type rawStr string

func (s *rawStr) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = rawStr(asString)
		return nil
	}
	var asNum json.Number
	if err := json.Unmarshal(data, &asNum); err == nil {
		*s = rawStr(asNum.String())
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", snippet(data))
}

// intFromRaw parses the first non-empty raw value as an integer, returning
// nil when absent or unparseable.
func intFromRaw(candidates ...json.RawMessage) *int {
	for _, c := range candidates {
		if len(c) == 0 || string(c) == "null" {
			continue
		}
		var s rawStr
		if err := json.Unmarshal(c, &s); err != nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(string(s), "%d", &n); err != nil {
			continue
		}
		return &n
	}
	return nil
}

// QuoteRow is a guest-qualified rate row: the availability row plus the
// booking-level amounts the rate endpoint reports per room type.
type QuoteRow struct {
	availability.Row

	TotalPrice  float64
	PetFee      float64
	CleaningFee float64
	VAT         float64
	GrossAmount float64
}

// rawQuoteRoom adds the fee/amount fields the rate endpoint includes.
type rawQuoteRoom struct {
	rawRoom

	TotalPrice  rawStr `json:"totalPrice"`
	PetFee      rawStr `json:"petFeeAmount"`
	CleaningFee rawStr `json:"cleaningFee"`
	VAT         rawStr `json:"Vat"`
	GrossAmount rawStr `json:"GrossAmount"`
}

func (r rawQuoteRoom) quoteRow() QuoteRow {
	return QuoteRow{
		Row:         r.row(),
		TotalPrice:  availability.ParsePrice(string(r.TotalPrice)),
		PetFee:      availability.ParsePrice(string(r.PetFee)),
		CleaningFee: availability.ParsePrice(string(r.CleaningFee)),
		VAT:         availability.ParsePrice(string(r.VAT)),
		GrossAmount: availability.ParsePrice(string(r.GrossAmount)),
	}
}

// DecodeQuoteRows parses the rate endpoint's data payload.
func DecodeQuoteRows(data json.RawMessage) ([]QuoteRow, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var raw []rawQuoteRoom
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode quote rows: %w", err)
		}
		rows := make([]QuoteRow, 0, len(raw))
		for _, r := range raw {
			rows = append(rows, r.quoteRow())
		}
		return rows, nil
	case '{':
		var raw rawQuoteRoom
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode quote row: %w", err)
		}
		return []QuoteRow{raw.quoteRow()}, nil
	default:
		return nil, fmt.Errorf("unexpected data payload shape: %s", snippet(data))
	}
}
