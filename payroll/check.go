/*
check.go - PayrollCheck ledger entries

PURPOSE:
  A PayrollCheck records one person's hours for one pay week, bucketed by
  hourly rate and weekday. Shifts at different rates in the same week land
  in different buckets.

KEY CONCEPTS:
  - RateHours: one rate's 7-day vector, Sunday first. Rates are compared
    with decimal.Equal so "15", "15.0" and "15.00" never split a bucket;
    the persisted key is the canonical two-decimal string.
  - Approved routing: once a check is approved, further accruals for that
    week go into AdditionalPayDetails and the approval is rescinded, so
    late corrections surface as a delta instead of silently rewriting an
    already-submitted check.
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lrcstaff/shift-engine/roster"
)

// RateHours buckets a week's hours for a single hourly rate. Hours is
// indexed Sunday=0 through Saturday=6.
type RateHours struct {
	Rate  decimal.Decimal
	Hours [7]decimal.Decimal
}

// Total sums the seven day slots.
func (rh RateHours) Total() decimal.Decimal {
	var t decimal.Decimal
	for _, h := range rh.Hours {
		t = t.Add(h)
	}
	return t
}

// Pay is the bucket's total hours at its rate. Totals are sums of
// per-shift rounded values, so no further rounding happens here.
func (rh RateHours) Pay() decimal.Decimal {
	return rh.Total().Mul(rh.Rate)
}

// RateKey is the canonical persisted form of a rate bucket key.
func RateKey(rate decimal.Decimal) string {
	return rate.StringFixed(2)
}

// PayrollCheck is one person's ledger entry for one pay week.
type PayrollCheck struct {
	Person    roster.Person
	WeekStart time.Time
	Approved  bool

	PayDetails           []RateHours
	AdditionalPayDetails []RateHours
}

// Accrue adds hours to the weekday slot for the given rate. Accruals
// after approval are routed to the additional ledger and rescind the
// approval.
func (c *PayrollCheck) Accrue(rate decimal.Decimal, weekday int, hours decimal.Decimal) {
	if c.Approved {
		addTo(&c.AdditionalPayDetails, rate, weekday, hours)
		c.Approved = false
		return
	}
	addTo(&c.PayDetails, rate, weekday, hours)
}

func addTo(buckets *[]RateHours, rate decimal.Decimal, weekday int, hours decimal.Decimal) {
	for i := range *buckets {
		if (*buckets)[i].Rate.Equal(rate) {
			(*buckets)[i].Hours[weekday] = (*buckets)[i].Hours[weekday].Add(hours)
			return
		}
	}
	rh := RateHours{Rate: rate}
	rh.Hours[weekday] = hours
	*buckets = append(*buckets, rh)
}
