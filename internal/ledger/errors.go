package ledger

import "fmt"

// Validation error codes. They are stable identifiers surfaced to API clients;
// the Message carries the human-readable detail.
const (
	CodeNonPositiveAmount        = "non_positive_amount"
	CodeInsufficientParticipants = "insufficient_participants"
	CodeDuplicateParticipant     = "duplicate_participant"
	CodeMissingPaidAmount        = "missing_paid_amount"
	CodeAmountMismatch           = "amount_mismatch"
	CodeParticipantNotMember     = "participant_not_member"
)

// ValidationError reports caller-supplied data that violates a ledger
// invariant. It is always recoverable by correcting the input and is surfaced
// verbatim to the end user, never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ParticipantNotMember builds the validation error for a participant that is
// not a member of the expense's group. Membership is checked by the service
// layer before mutation, so the constructor lives here with the rest of the
// taxonomy.
func ParticipantNotMember(userID string) *ValidationError {
	return validationErrorf(CodeParticipantNotMember, "participant %s is not a member of this group", userID)
}
