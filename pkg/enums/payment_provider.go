package enums

import "fmt"

// PaymentProvider names the gateway that collects an order's payment.
type PaymentProvider string

const (
	PaymentProviderStripe     PaymentProvider = "stripe"
	PaymentProviderPayPal     PaymentProvider = "paypal"
	PaymentProviderMultibanco PaymentProvider = "eupago_multibanco"
	PaymentProviderMBWay      PaymentProvider = "eupago_mbway"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderStripe,
	PaymentProviderPayPal,
	PaymentProviderMultibanco,
	PaymentProviderMBWay,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}

// IsEuPago reports whether the provider is one of the EuPago channels.
func (p PaymentProvider) IsEuPago() bool {
	return p == PaymentProviderMultibanco || p == PaymentProviderMBWay
}
