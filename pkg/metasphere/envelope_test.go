package metasphere

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeSuccess(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"flag":"0","result":"success","data":[]}`), &env))
	assert.True(t, env.Success())

	require.NoError(t, json.Unmarshal([]byte(`{"flag":"1","result":"fail","message":"no rate plan"}`), &env))
	assert.False(t, env.Success())
}

func TestEnvelopeNumericFlagAndResult(t *testing.T) {
	// Some endpoints emit flag (and occasionally result) as bare numbers;
	// those must decode instead of failing the whole request.
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"flag":0,"result":"success","data":[]}`), &env))
	assert.True(t, env.Success())

	require.NoError(t, json.Unmarshal([]byte(`{"flag":1,"result":"fail","message":"no rate plan"}`), &env))
	assert.False(t, env.Success())
	assert.Nil(t, env.Unauthorized())
}

func TestEnvelopeUnauthorizedDetection(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		unauth bool
	}{
		{"token expired in message", `{"flag":"1","result":"fail","message":"Token Expired"}`, true},
		{"capitalized message field", `{"flag":"1","result":"fail","Message":"Invalid Token"}`, true},
		{"unauthorized in response field", `{"flag":"1","response":"Unauthorized access"}`, true},
		{"ordinary business failure", `{"flag":"1","result":"fail","message":"no rooms for range"}`, false},
		{"success", `{"flag":"0","result":"success"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tc.body), &env))
			if tc.unauth {
				assert.NotNil(t, env.Unauthorized())
			} else {
				assert.Nil(t, env.Unauthorized())
			}
		})
	}
}

func TestDecodeRowsArrayAndObject(t *testing.T) {
	payload := []byte(`[
		{
			"roomTypeId": "RT1",
			"roomTypeName": "Lakeside Suite",
			"Currency": "CAD",
			"min_Nights": "2",
			"maxNights": 14,
			"details": [
				{"date": "2025-03-10", "status": "available", "isAvailable": "1", "price": "189.00", "minimum_Stay": 3},
				{"Date": "2025-03-11", "Status": "soldout", "available": 0, "Price": 159}
			]
		}
	]`)

	rows, err := DecodeRows(payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "RT1", row.RoomTypeID)
	assert.Equal(t, "CAD", row.Currency)
	require.NotNil(t, row.MinNights)
	assert.Equal(t, 2, *row.MinNights)
	require.NotNil(t, row.MaxNights)
	assert.Equal(t, 14, *row.MaxNights)

	require.Len(t, row.Details, 2)
	assert.Equal(t, "2025-03-10", row.Details[0].Date)
	assert.Equal(t, "1", row.Details[0].Inventory)
	assert.Equal(t, "189.00", row.Details[0].Price)
	require.NotNil(t, row.Details[0].MinStay)
	assert.Equal(t, 3, *row.Details[0].MinStay)

	// Single-object payloads decode as a one-row slice.
	single, err := DecodeRows([]byte(`{"roomTypeId":"RT2","details":[]}`))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "RT2", single[0].RoomTypeID)
}

func TestDecodeRowsVariantAvailabilityKeys(t *testing.T) {
	for _, key := range []string{"isAvailable", "available", "isAvail"} {
		payload := []byte(`[{"roomTypeId":"RT1","details":[{"date":"2025-03-10","` + key + `":"1"}]}]`)
		rows, err := DecodeRows(payload)
		require.NoError(t, err, key)
		require.Len(t, rows, 1)
		assert.Equal(t, "1", rows[0].Details[0].Inventory, key)
	}
}

func TestDecodeRowsEmptyAndInvalid(t *testing.T) {
	rows, err := DecodeRows(nil)
	require.NoError(t, err)
	assert.Nil(t, rows)

	rows, err = DecodeRows([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, rows)

	_, err = DecodeRows([]byte(`"surprise"`))
	assert.Error(t, err, "scalar payloads are a parse failure, not guessed at")
}

func TestDecodeQuoteRows(t *testing.T) {
	payload := []byte(`[{
		"roomTypeId": "RT1",
		"roomTypeName": "Lakeside Suite",
		"totalPrice": "540.00",
		"petFeeAmount": 25,
		"cleaningFee": "80",
		"Vat": "84.75",
		"GrossAmount": 729.75,
		"details": [
			{"date": "2025-03-10", "price": "180"},
			{"date": "2025-03-11", "price": "180"},
			{"date": "2025-03-12", "price": "180"}
		]
	}]`)

	rows, err := DecodeQuoteRows(payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	q := rows[0]
	assert.Equal(t, "RT1", q.RoomTypeID)
	assert.Equal(t, 540.0, q.TotalPrice)
	assert.Equal(t, 25.0, q.PetFee)
	assert.Equal(t, 80.0, q.CleaningFee)
	assert.Equal(t, 84.75, q.VAT)
	assert.Equal(t, 729.75, q.GrossAmount)
	assert.Len(t, q.Details, 3)
}
