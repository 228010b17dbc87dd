package app

// NotificationKind classifies a user-facing notice
type NotificationKind int

const (
	NotifyInfo NotificationKind = iota
	NotifySuccess
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyInfo:
		return "info"
	case NotifySuccess:
		return "success"
	case NotifyError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a message presented to the user
type Notification struct {
	Kind    NotificationKind
	Title   string
	Message string
}

// Notifier presents notifications. The returned channel is closed once the
// user has acknowledged the notice; implementations that do not wait for the
// user return an already closed channel.
type Notifier interface {
	Notify(n Notification) <-chan struct{}
}

// Acknowledged returns a closed channel, for notifiers that never block
func Acknowledged() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
