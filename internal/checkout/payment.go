package checkout

import "strings"

// Payment selection: cash on delivery, or the online branch with a
// mobile-wallet or card sub-method. Sensitive fields stay in-process;
// only the descriptor string travels to the backend.

type Method string

const (
	MethodCashOnDelivery Method = "cash_on_delivery"
	MethodOnline         Method = "online"
)

type SubMethod string

const (
	SubMethodWallet SubMethod = "bkash"
	SubMethodCard   SubMethod = "card"
)

type Payment struct {
	Method    Method
	SubMethod SubMethod

	WalletNumber string
	WalletPIN    string
	WalletOTP    string

	CardNumber string
	CardExpiry string
	CardCVV    string
}

// ValidationError is caught before any network call and shown inline,
// never logged as a failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (p Payment) validate() error {
	if p.Method != MethodOnline {
		return nil
	}
	switch p.SubMethod {
	case SubMethodWallet:
		if trimmed(p.WalletNumber) == "" {
			return &ValidationError{Message: "please enter your bKash/Nagad number"}
		}
		if trimmed(p.WalletPIN) == "" {
			return &ValidationError{Message: "please enter your bKash/Nagad PIN"}
		}
		if trimmed(p.WalletOTP) == "" {
			return &ValidationError{Message: "please enter the one-time code"}
		}
	case SubMethodCard:
		if trimmed(p.CardNumber) == "" || trimmed(p.CardExpiry) == "" || trimmed(p.CardCVV) == "" {
			return &ValidationError{Message: "please enter complete card details"}
		}
	default:
		return &ValidationError{Message: "please select a payment method"}
	}
	return nil
}

// Descriptor is the single string submitted as the order's payment
// method. Card numbers are masked to the last four digits; PIN, OTP,
// expiry and CVV are never included.
func (p Payment) Descriptor() string {
	if p.Method != MethodOnline {
		return "cash on delivery"
	}
	if p.SubMethod == SubMethodWallet {
		return "bkash/nagad (" + p.WalletNumber + ")"
	}
	return "card (" + lastFour(p.CardNumber) + ")"
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func lastFour(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
