package enums

import "fmt"

// ShippingMethod distinguishes store-run dispatch from external carrier booking.
type ShippingMethod string

const (
	ShippingMethodLocalDispatch ShippingMethod = "local_dispatch"
	ShippingMethodCarrier       ShippingMethod = "carrier"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodLocalDispatch,
	ShippingMethodCarrier,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
