package enums

// InvoiceStatus is the payment status reported by the invoice provider
// in webhook notifications. The set is open: providers add statuses over
// time, and unknown values must be ignored rather than rejected.
type InvoiceStatus string

const (
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusExpired  InvoiceStatus = "EXPIRED"
	InvoiceStatusFailed   InvoiceStatus = "FAILED"
	InvoiceStatusClosed   InvoiceStatus = "CLOSED"
	InvoiceStatusRefunded InvoiceStatus = "REFUNDED"
)

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsCancellation reports whether the provider status ends the payment
// attempt without money changing hands.
func (s InvoiceStatus) IsCancellation() bool {
	switch s {
	case InvoiceStatusExpired, InvoiceStatusFailed, InvoiceStatusClosed:
		return true
	}
	return false
}
