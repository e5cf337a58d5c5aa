package messaging

// FailureReason classifies the non-retryable terminal outcomes of the
// ProcessMessage stage.
type FailureReason string

const (
	FailureBadData             FailureReason = "BAD_DATA"
	FailureProfileNotFound     FailureReason = "PROFILE_NOT_FOUND"
	FailureMasterInboxDisabled FailureReason = "MASTER_INBOX_DISABLED"
	FailureSenderBlocked       FailureReason = "SENDER_BLOCKED"
	// FailurePermanentError is reported by the delivery stages when a
	// dispatcher rejects a notification in a way retries cannot fix.
	FailurePermanentError FailureReason = "PERMANENT_ERROR"
)

// ProcessMessageResult is the terminal state of one processed message.
// Transient faults are never encoded here; they propagate as errors so the
// transport retries the message.
type ProcessMessageResult struct {
	Succeeded              bool
	BlockedInboxOrChannels []Channel
	Profile                *Profile
	Reason                 FailureReason
}

// ProcessMessageSuccess builds the SUCCESS terminal state. Profile is the
// echoed profile forwarded to the CreateNotification stage.
func ProcessMessageSuccess(blocked []Channel, profile *Profile) ProcessMessageResult {
	return ProcessMessageResult{
		Succeeded:              true,
		BlockedInboxOrChannels: blocked,
		Profile:                profile,
	}
}

// ProcessMessageFailure builds a typed FAILURE terminal state.
func ProcessMessageFailure(reason FailureReason) ProcessMessageResult {
	return ProcessMessageResult{Reason: reason}
}
