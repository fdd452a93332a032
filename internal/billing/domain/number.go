package billing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateInvoiceNumber builds an INV-{year}{month}-{3-digit} number.
// The random suffix is not collision-checked here; the storage layer
// surfaces duplicates as ErrDuplicateNumber and callers retry.
func GenerateInvoiceNumber(now time.Time) string {
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		// crypto/rand failure leaves the clock as the only entropy source.
		return fmt.Sprintf("INV-%s-%03d", now.Format("200601"), now.Nanosecond()%1000)
	}
	return fmt.Sprintf("INV-%s-%03d", now.Format("200601"), suffix.Int64())
}
