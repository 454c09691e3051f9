package gate

import (
	"context"

	"github.com/clearauth/clearauth/pkg/credential"
	"github.com/clearauth/clearauth/pkg/notification"
)

// Hooks receives the tokens produced by confirmation and password-reset
// requests so a collaborator can deliver them (typically by email). The gate
// never formats or sends messages itself.
type Hooks interface {
	OnConfirmationRequested(ctx context.Context, cred credential.Credential, token string) error
	OnPasswordResetRequested(ctx context.Context, cred credential.Credential, token string) error
}

// NoopHooks discards all notifications. It is the default when no hooks are
// configured.
type NoopHooks struct{}

func (NoopHooks) OnConfirmationRequested(ctx context.Context, cred credential.Credential, token string) error {
	return nil
}

func (NoopHooks) OnPasswordResetRequested(ctx context.Context, cred credential.Credential, token string) error {
	return nil
}

// ManagerHooks adapts a notification.Manager to the Hooks interface.
type ManagerHooks struct {
	Manager *notification.Manager
}

func (h ManagerHooks) OnConfirmationRequested(ctx context.Context, cred credential.Credential, token string) error {
	return h.Manager.Send(notification.NoticeConfirmation, notification.NotificationData{
		To:   cred.Email,
		Data: map[string]string{"token": token, "account_id": cred.ID.String()},
	})
}

func (h ManagerHooks) OnPasswordResetRequested(ctx context.Context, cred credential.Credential, token string) error {
	return h.Manager.Send(notification.NoticePasswordReset, notification.NotificationData{
		To:   cred.Email,
		Data: map[string]string{"token": token, "account_id": cred.ID.String()},
	})
}
