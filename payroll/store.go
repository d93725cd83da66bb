package payroll

import (
	"context"
	"time"

	"github.com/lrcstaff/shift-engine/roster"
	"github.com/lrcstaff/shift-engine/scheduling"
)

// Store is the persistence surface the aggregator needs: shift access
// plus the PayrollCheck ledger. GetCheck reports a missing check with
// scheduling.ErrNotFound.
type Store interface {
	GetShift(ctx context.Context, id scheduling.ShiftID) (*scheduling.Shift, error)
	Shifts(ctx context.Context, f scheduling.ShiftFilter) ([]scheduling.Shift, error)

	GetCheck(ctx context.Context, person roster.PersonID, weekStart time.Time) (*PayrollCheck, error)
	SaveCheck(ctx context.Context, c PayrollCheck) error
	PurgeChecks(ctx context.Context) error

	// ApplySignOff persists a sign-off as one atomic unit: the signed
	// shift update, the synthesized preparation shift (nil when none),
	// and the updated check.
	ApplySignOff(ctx context.Context, signed scheduling.Shift, prep *scheduling.Shift, check PayrollCheck) error
}
