package enums

import "fmt"

// ShippingMethod selects how a cart line is delivered at checkout.
type ShippingMethod string

const (
	ShippingMethodStandard ShippingMethod = "standard"
	ShippingMethodPickup   ShippingMethod = "pickup"
	ShippingMethodCourier  ShippingMethod = "courier"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodStandard,
	ShippingMethodPickup,
	ShippingMethodCourier,
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
