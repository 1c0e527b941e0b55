package checkout

// State of a user's checkout.
//
//	Browsing → AddressEntry → PaymentSelection → Processing → Succeeded → Confirmed
//	                                                        ↘ Failed → PaymentSelection
//
// A session that failed after the payment was taken goes from Failed
// straight back to Processing on the next Pay.
type State string

const (
	StateBrowsing         State = "BROWSING"
	StateAddressEntry     State = "ADDRESS_ENTRY"
	StatePaymentSelection State = "PAYMENT_SELECTION"
	StateProcessing       State = "PROCESSING"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
	StateConfirmed        State = "CONFIRMED"
)

// Cancellable reports whether the user may abandon checkout from s.
func (s State) Cancellable() bool {
	switch s {
	case StateAddressEntry, StatePaymentSelection, StateFailed:
		return true
	}
	return false
}
