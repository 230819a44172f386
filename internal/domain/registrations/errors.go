package registrations

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("registration not found")
	ErrInvalidInvite = errors.New("invalid invite code")
	ErrAlreadyJoined = errors.New("you have already joined this event")
	ErrEventFull     = errors.New("event is full")
	ErrInvalidTicket = errors.New("invalid ticket")
	ErrNotOwner      = errors.New("ticket belongs to another user")
	ErrBadStatus     = errors.New("invalid registration status")
	ErrBadPayment    = errors.New("invalid payment status")
)

// Registration statuses.
const (
	StatusPending    = "Pending"
	StatusConfirmed  = "Confirmed"
	StatusPresent    = "Present"
	StatusAbsent     = "Absent"
	StatusCompleted  = "Completed"
	StatusWaitlisted = "Waitlisted"
)

// Payment statuses. Paid and Free both count as settled.
const (
	PaymentUnpaid  = "Unpaid"
	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFree    = "Free"
)

var validRegStatuses = map[string]bool{
	StatusPending:    true,
	StatusConfirmed:  true,
	StatusPresent:    true,
	StatusAbsent:     true,
	StatusCompleted:  true,
	StatusWaitlisted: true,
}

var validPayments = map[string]bool{
	PaymentUnpaid:  true,
	PaymentPending: true,
	PaymentPaid:    true,
	PaymentFree:    true,
}

// PaymentSettled reports whether a registration's payment clears the
// check-in gate.
func PaymentSettled(paymentStatus string) bool {
	return paymentStatus == PaymentPaid || paymentStatus == PaymentFree
}

// PaymentUnconfirmedError blocks check-in for unsettled tickets while
// handing the operator enough identity to resolve payment at the door.
type PaymentUnconfirmedError struct {
	Registration *Registration
}

func (e *PaymentUnconfirmedError) Error() string {
	return fmt.Sprintf("payment not confirmed for registration %d", e.Registration.ID)
}
