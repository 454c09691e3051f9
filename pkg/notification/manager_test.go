package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	t.Run("SendRegisteredNotice", func(t *testing.T) {
		m := NewManager()
		mock := &MockNotifier{}
		err := m.Register(NoticePasswordReset, mock, NoticeTemplate{Subject: "Change your password"})
		require.NoError(t, err)

		err = m.Send(NoticePasswordReset, NotificationData{
			To:   "user@example.com",
			Data: map[string]string{"token": "tok1"},
		})
		require.NoError(t, err)
		require.Len(t, mock.SentNotifications, 1)
		assert.Equal(t, "user@example.com", mock.SentNotifications[0].To)
		assert.Equal(t, "tok1", mock.SentNotifications[0].Data["token"])
	})

	t.Run("UnregisteredNotice", func(t *testing.T) {
		m := NewManager()
		err := m.Send(NoticeConfirmation, NotificationData{To: "user@example.com"})
		assert.Error(t, err)
	})

	t.Run("RegisterValidation", func(t *testing.T) {
		m := NewManager()
		assert.Error(t, m.Register("", &MockNotifier{}, NoticeTemplate{}))
		assert.Error(t, m.Register(NoticeConfirmation, nil, NoticeTemplate{}))
	})
}
