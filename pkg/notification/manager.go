// Package notification delivers the outbound messages produced by
// authentication events: confirmation links and password-reset links. The
// core never formats transport payloads itself; it hands tokens to a Manager
// which looks up the registered template and notifier.
package notification

import "fmt"

// Manager manages notifiers and notice templates.
type Manager struct {
	notifiers map[NoticeType]Notifier
	templates map[NoticeType]NoticeTemplate
}

// NewManager creates and returns a new Manager.
func NewManager() *Manager {
	return &Manager{
		notifiers: make(map[NoticeType]Notifier),
		templates: make(map[NoticeType]NoticeTemplate),
	}
}

// Register binds a notifier and template to a notice type.
func (m *Manager) Register(noticeType NoticeType, notifier Notifier, template NoticeTemplate) error {
	if noticeType == "" || notifier == nil {
		return fmt.Errorf("invalid input: notice type and notifier cannot be empty")
	}
	m.notifiers[noticeType] = notifier
	m.templates[noticeType] = template
	return nil
}

// Send delivers a notice of the given type.
func (m *Manager) Send(noticeType NoticeType, notification NotificationData) error {
	notifier, exists := m.notifiers[noticeType]
	if !exists {
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}
	return notifier.Send(noticeType, notification, m.templates[noticeType])
}
