package domain

import "context"

type MilestoneStatus string

// Milestone status constants, in progression order
const (
	MilestonePending    MilestoneStatus = "Pending"
	MilestoneInProgress MilestoneStatus = "In Progress"
	MilestoneDone       MilestoneStatus = "Done"
	MilestonePaid       MilestoneStatus = "Paid"
)

var milestoneOrder = map[MilestoneStatus]int{
	MilestonePending:    0,
	MilestoneInProgress: 1,
	MilestoneDone:       2,
	MilestonePaid:       3,
}

// Valid reports whether s is a known milestone status.
func (s MilestoneStatus) Valid() bool {
	_, ok := milestoneOrder[s]
	return ok
}

// Open reports whether work on the milestone is still outstanding.
func (s MilestoneStatus) Open() bool {
	return s == MilestonePending || s == MilestoneInProgress
}

// CanAdvanceTo allows exactly one forward step: Pending → In Progress →
// Done → Paid.
func (s MilestoneStatus) CanAdvanceTo(next MilestoneStatus) bool {
	from, ok := milestoneOrder[s]
	if !ok {
		return false
	}
	to, ok := milestoneOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

type Milestone struct {
	Description string          `json:"description" validate:"required"`
	Amount      Amount          `json:"amount" validate:"gt=0,finite"`
	DueDate     string          `json:"duedate" validate:"required,datetime=2006-01-02"`
	Status      MilestoneStatus `json:"status"`
}

// IsActive reports whether at least one milestone is Pending or In Progress.
func IsActive(milestones []Milestone) bool {
	for _, m := range milestones {
		if m.Status.Open() {
			return true
		}
	}
	return false
}

// IsCompleted is the complement of IsActive; an empty list is completed.
func IsCompleted(milestones []Milestone) bool {
	return !IsActive(milestones)
}

// PaidTotal sums the amounts of Paid milestones.
func PaidTotal(milestones []Milestone) float64 {
	var total float64
	for _, m := range milestones {
		if m.Status == MilestonePaid {
			total += m.Amount.Float()
		}
	}
	return total
}

// MilestoneUsecase drives the ledger of an accepted application.
type MilestoneUsecase interface {
	AdvanceMilestone(ctx context.Context, actor Actor, jobID, applicantID string, index int, status MilestoneStatus) (*Application, error)
	PayMilestone(ctx context.Context, actor Actor, jobID, applicantID string, index int, amount float64) (*PaymentReceipt, error)
	GetWallet(ctx context.Context, uid string) (*Wallet, error)
	Deposit(ctx context.Context, uid string, amount float64) (*Wallet, error)
}
