package fulfill

import "strings"

// ErrorKind classifies a marketplace failure reason.
type ErrorKind int

const (
	// ErrorFatal stops candidate iteration; the reason is not recognized.
	ErrorFatal ErrorKind = iota
	// ErrorIgnorable skips to the next candidate (listing sold, failed checks, transient).
	ErrorIgnorable
	// ErrorFundsExhausted aborts acquisition; the marketplace balance is too low for any purchase.
	ErrorFundsExhausted
)

// String returns a stable name for logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case ErrorIgnorable:
		return "ignorable"
	case ErrorFundsExhausted:
		return "funds_exhausted"
	default:
		return "fatal"
	}
}

// RetryRequestCode is the marketplace's transient "try again" error code.
const RetryRequestCode = "retry_request"

// FundsPhrases mark a purchase failure caused by an insufficient marketplace balance.
var FundsPhrases = []string{
	"insufficient balance",
	"insufficient funds",
	"top up your balance",
	"недостаточно средств",
	"недостаточно баланса",
	"пополнить баланс",
}

// IgnorablePhrases mark a purchase failure specific to one listing.
var IgnorablePhrases = []string{
	"sold",
	"too many verification errors",
	"failed verification",
	"already sold",
	"currently unavailable",
	RetryRequestCode,
	"аккаунт продан",
	"произошло более 20 ошибок",
	"не прошел проверку",
	"уже продан",
	"в данный момент недоступен",
}

// ErrorClassifier maps a failure reason to an ErrorKind.
type ErrorClassifier func(reason string) ErrorKind

// Classify matches reason against FundsPhrases, then IgnorablePhrases, case-insensitively.
func Classify(reason string) ErrorKind {
	lower := strings.ToLower(reason)
	if containsAny(lower, FundsPhrases) {
		return ErrorFundsExhausted
	}
	if containsAny(lower, IgnorablePhrases) {
		return ErrorIgnorable
	}

	return ErrorFatal
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, strings.ToLower(phrase)) {
			return true
		}
	}

	return false
}
