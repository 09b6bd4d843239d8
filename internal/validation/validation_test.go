package validation

import (
	"testing"

	"gcdl-backend/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Phone   string          `json:"phone" validate:"required,ugphone"`
	Type    string          `json:"type" validate:"required,producetype"`
	Date    string          `json:"date" validate:"required,ymd"`
	Time    string          `json:"time" validate:"required,hhmm"`
	Tonnage decimal.Decimal `json:"tonnage" validate:"gte=1,scale=3"`
	Price   decimal.Decimal `json:"price" validate:"gt=0,scale=2"`
}

func valid() sample {
	return sample{
		Phone:   "+256700123456",
		Type:    "Grain Maize",
		Date:    "2024-02-29",
		Time:    "09:30",
		Tonnage: decimal.NewFromInt(1),
		Price:   decimal.RequireFromString("0.5"),
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	assert.NoError(t, Struct(valid()))
}

func TestStructRejects(t *testing.T) {
	cases := map[string]func(*sample){
		"phone without prefix": func(s *sample) { s.Phone = "0700123456" },
		"phone too short":      func(s *sample) { s.Phone = "+25670012345" },
		"unknown produce type": func(s *sample) { s.Type = "coffee" },
		"bad date":             func(s *sample) { s.Date = "2023-02-29" },
		"unpadded date":        func(s *sample) { s.Date = "2024-2-1" },
		"bad time":             func(s *sample) { s.Time = "25:00" },
		"unpadded time":        func(s *sample) { s.Time = "9:30" },
		"tonnage below min":    func(s *sample) { s.Tonnage = decimal.RequireFromString("0.9") },
		"zero price":           func(s *sample) { s.Price = decimal.Zero },
		"tonnage below a kilo": func(s *sample) { s.Tonnage = decimal.RequireFromString("1.0004") },
		"price below a cent":   func(s *sample) { s.Price = decimal.RequireFromString("0.505") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(&s)
			err := Struct(s)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestMessagesUseJSONNames(t *testing.T) {
	s := valid()
	s.Phone = "nope"
	err := Struct(s)
	assert.ErrorContains(t, err, "phone must be a phone number like +256XXXXXXXXX")
}

func TestScaleIgnoresTrailingZeros(t *testing.T) {
	s := valid()
	s.Tonnage = decimal.RequireFromString("2.500000")
	s.Price = decimal.RequireFromString("10.1000")
	assert.NoError(t, Struct(s))
}

type patch struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,scale=2"`
}

func TestScaleOnOptionalField(t *testing.T) {
	assert.NoError(t, Struct(patch{}))

	ok := decimal.RequireFromString("12.50")
	assert.NoError(t, Struct(patch{Amount: &ok}))

	fine := decimal.RequireFromString("12.505")
	err := Struct(patch{Amount: &fine})
	assert.ErrorContains(t, err, "amount must have at most 2 decimal places")
}

func TestHasScale(t *testing.T) {
	assert.True(t, HasScale(decimal.RequireFromString("5"), 3))
	assert.True(t, HasScale(decimal.RequireFromString("0.001"), 3))
	assert.False(t, HasScale(decimal.RequireFromString("0.0004"), 3))
	assert.False(t, HasScale(decimal.RequireFromString("-1.234"), 2))
}
