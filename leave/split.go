/*
split.go - Credit split resolution

PURPOSE:
  Decides, at approval time, how many of a request's days are funded by
  accrued credits and what happens to the remainder. Insufficient balance is
  never an error here: the shortfall becomes unpaid time off, either by
  reclassifying the request in place or by carving the remainder into a
  linked companion UPTO request.

OUTCOMES (credit-bearing types only):

  available >= days          full deduction, no companion
  available <= 0             VL: reclassified to UPTO in place
                             SL + certificate: reclassified to UPTO
                             SL, no certificate: stays SL, nothing deducted
  0 < available < days       deduct what is available, companion UPTO for
                             the remainder

  Non-credit-bearing types resolve to the zero outcome: no deduction, no
  conversion, no companion.

IDEMPOTENCY:
  Resolution is pure; it runs exactly once per approval action. The service
  checks for an existing companion before creating one, and the store's
  uniqueness constraint on the parent link backs that check.

SEE ALSO:
  - credits: AvailableBalance feeding this resolver
  - service.go: applies the outcome inside one transaction
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitOutcome is the resolved funding decision for one approval.
type SplitOutcome struct {
	// DeductDays is the credit amount to consume, zero when nothing is
	// funded.
	DeductDays decimal.Decimal

	// ConvertToUnpaid reclassifies the request to UPTO in place. The
	// original type survives only in the NoCreditReason text.
	ConvertToUnpaid bool

	// CompanionDays, when positive, is the unfunded remainder to carve
	// into a linked, auto-approved UPTO companion.
	CompanionDays decimal.Decimal

	// NoCreditReason explains a withheld or split deduction; stored on
	// the request keyed by its original type.
	NoCreditReason string
}

// Funded reports whether any credits are consumed by this outcome.
func (o SplitOutcome) Funded() bool { return o.DeductDays.IsPositive() }

// ResolveCreditSplit computes the funding outcome for a request of the
// given type. days is the effective day count: approved days when a partial
// denial already reduced the request, otherwise the full requested count.
func ResolveCreditSplit(typ Type, available, days decimal.Decimal, hasCertificate bool) SplitOutcome {
	if !typ.Policy().CreditBearing {
		return SplitOutcome{}
	}
	if days.IsZero() || days.IsNegative() {
		return SplitOutcome{}
	}

	if available.GreaterThanOrEqual(days) {
		return SplitOutcome{DeductDays: days}
	}

	if !available.IsPositive() {
		return resolveZeroCredit(typ, hasCertificate)
	}

	// Partial funding: credits cover some days, the rest is unpaid.
	remainder := days.Sub(available)
	return SplitOutcome{
		DeductDays:    available,
		CompanionDays: remainder,
		NoCreditReason: fmt.Sprintf(
			"Credits covered %s of %s requested day(s); remaining %s day(s) filed as unpaid time off",
			available.String(), days.String(), remainder.String()),
	}
}

func resolveZeroCredit(typ Type, hasCertificate bool) SplitOutcome {
	// Sick leave without a supporting certificate keeps its type: the
	// leave is unpaid but not renamed.
	if typ.Policy().CertificateConvertible && !hasCertificate {
		return SplitOutcome{
			NoCreditReason: "Credits not deducted: insufficient balance and no supporting certificate submitted",
		}
	}
	return SplitOutcome{
		ConvertToUnpaid: true,
		NoCreditReason:  fmt.Sprintf("Converted to UPTO: insufficient balance for %s", typ),
	}
}

// CreditSplitPreview is the read-only view of a split resolution, computed
// for display before submission or approval. Nothing is persisted.
type CreditSplitPreview struct {
	EmployeeID       string
	Type             Type
	DaysRequested    decimal.Decimal
	AvailableBalance decimal.Decimal
	Outcome          SplitOutcome
	Eligible         bool
}
