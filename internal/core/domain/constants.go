package domain

import "errors"

const (
	// HelpToken lists every registered command regardless of conversation state.
	HelpToken = ".help"
	// AbortToken drops the caller's active conversation.
	AbortToken = ".abort"

	AbortMessage   = "Abort current conversation"
	FailureMessage = `Something went wrong with "%s"`
)

var (
	ErrEmptyReply            = errors.New("handler returned an empty reply")
	ErrHandlerPanic          = errors.New("handler panicked")
	ErrQueueClosed           = errors.New("cannot schedule new tasks after shutdown")
	ErrUnknownPlugin         = errors.New("unknown plugin")
	ErrMissingDeliveryTarget = errors.New("missing delivery target")
	ErrUnsupportedTrigger    = errors.New("unsupported trigger")
	ErrJobExists             = errors.New("job already scheduled")
	ErrConnectFailed         = errors.New("failed to connect to backend")
	ErrSendingReplyFailed    = errors.New("failed to send reply")
)
