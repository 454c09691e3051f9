package notification

// NoticeType identifies an authentication event that produces an outbound
// message.
type NoticeType string

const (
	NoticeConfirmation  NoticeType = "confirmation_requested"
	NoticePasswordReset NoticeType = "password_reset_requested"
)

// NotificationData carries the recipient and template inputs for one notice.
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address)
	Data map[string]string // Template inputs (e.g., token, confirmation URL)
}

// NoticeTemplate holds the renderable parts of a registered notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice over one transport.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
