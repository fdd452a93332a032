package interfaces

import (
	"fmt"
	"net/http/httptest"
	"testing"

	billing "opsledger/internal/billing/domain"
)

func TestRespondServiceErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{err: billing.ErrNotFound, code: 404},
		{err: billing.ErrClientNotFound, code: 404},
		{err: billing.ErrProjectNotFound, code: 404},
		{err: fmt.Errorf("%w: cannot pay draft invoice", billing.ErrInvalidState), code: 409},
		{err: fmt.Errorf("%w: 500.00 over remaining 100.00", billing.ErrAmountExceedsBalance), code: 409},
		{err: fmt.Errorf("%w: negative discount", billing.ErrValidation), code: 400},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		respondServiceError(rec, tc.err)
		if rec.Code != tc.code {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.code)
		}
	}
}
