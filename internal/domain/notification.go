package domain

// Severity selects the style of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Message  string
	Severity Severity
}

// Messages surfaced by the view actions.
const (
	MsgBookmarkAdded   = "Bookmark added!"
	MsgAddFailed       = "Failed to add bookmark!"
	MsgBookmarkDeleted = "Bookmark deleted!"
	MsgDeleteFailed    = "Failed to delete bookmark!"
	MsgLoggedOut       = "Logged out successfully"
)

func Success(msg string) Notification {
	return Notification{Message: msg, Severity: SeveritySuccess}
}

func Failure(msg string) Notification {
	return Notification{Message: msg, Severity: SeverityError}
}
