package places

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PriceLevel is the provider's ordinal price tier. The zero value means the provider sent none.
type PriceLevel int

const (
	PriceUnspecified PriceLevel = iota
	PriceFree
	PriceInexpensive
	PriceModerate
	PriceExpensive
	PriceVeryExpensive
)

var priceNames = map[PriceLevel]string{
	PriceUnspecified:   "",
	PriceFree:          "free",
	PriceInexpensive:   "inexpensive",
	PriceModerate:      "moderate",
	PriceExpensive:     "expensive",
	PriceVeryExpensive: "very_expensive",
}

// ParsePriceLevel accepts the Places API enum (PRICE_LEVEL_EXPENSIVE), the short form
// (expensive, very-expensive) and the legacy numeric 0-4 scale.
func ParsePriceLevel(s string) (PriceLevel, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.TrimPrefix(n, "price_level_")
	n = strings.ReplaceAll(n, "-", "_")
	switch n {
	case "", "unspecified":
		return PriceUnspecified, nil
	case "free", "0":
		return PriceFree, nil
	case "inexpensive", "1":
		return PriceInexpensive, nil
	case "moderate", "2":
		return PriceModerate, nil
	case "expensive", "3":
		return PriceExpensive, nil
	case "very_expensive", "4":
		return PriceVeryExpensive, nil
	}
	return PriceUnspecified, fmt.Errorf("unknown price level %q", s)
}

func (p PriceLevel) String() string {
	if name, ok := priceNames[p]; ok {
		return name
	}
	return fmt.Sprintf("price_level(%d)", int(p))
}

func (p PriceLevel) Known() bool {
	return p >= PriceFree && p <= PriceVeryExpensive
}

// Symbol renders the tier the way list cards show it.
func (p PriceLevel) Symbol() string {
	switch p {
	case PriceFree:
		return "Free"
	case PriceInexpensive:
		return "$"
	case PriceModerate:
		return "$$"
	case PriceExpensive:
		return "$$$"
	case PriceVeryExpensive:
		return "$$$$"
	}
	return ""
}

func (p PriceLevel) Label() string {
	switch p {
	case PriceFree:
		return "Free"
	case PriceInexpensive:
		return "Inexpensive"
	case PriceModerate:
		return "Moderate"
	case PriceExpensive:
		return "Expensive"
	case PriceVeryExpensive:
		return "Very Expensive"
	}
	return ""
}

func (p PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PriceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("price level: %w", err)
		}
		s = fmt.Sprint(n)
	}
	level, err := ParsePriceLevel(s)
	if err != nil {
		return err
	}
	*p = level
	return nil
}
