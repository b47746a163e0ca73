package service

import (
	"strings"

	"github.com/akylbek/payment-system/pix-payments/internal/brcode"
)

const referenceOrderChars = 6

// TransactionReference derives the reconciliation hint embedded in the
// payload: prefix plus the first six alphanumerics of the order id, upper
// cased. It is not globally unique.
func TransactionReference(prefix, orderID string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToUpper(orderID) {
		if n == referenceOrderChars {
			break
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			n++
		}
	}
	return brcode.SanitizeReference(strings.ToUpper(prefix) + b.String())
}
