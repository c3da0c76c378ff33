package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/filedrive/backend/internal/models"
	"github.com/filedrive/backend/internal/store"
	"github.com/filedrive/backend/pkg/logger"
)

// Mailer dispatches share notifications. The service treats delivery as a
// black box; any failure propagates to the caller unchanged.
type Mailer interface {
	SendShareNotification(ctx context.Context, recipient, fileName, ownerEmail string) error
}

// ConsoleMailer logs the notification instead of sending it. Default in
// development and in tests.
type ConsoleMailer struct{}

func (ConsoleMailer) SendShareNotification(_ context.Context, recipient, fileName, ownerEmail string) error {
	logger.Info("share_notification", map[string]interface{}{
		"recipient": recipient,
		"file_name": fileName,
		"owner":     ownerEmail,
	})
	return nil
}

// SMTPMailer sends the notification through a plain SMTP relay.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

func (m *SMTPMailer) SendShareNotification(_ context.Context, recipient, fileName, ownerEmail string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s shared a file with you\r\n\r\n%s has shared %q with you.\r\n",
		m.From, recipient, ownerEmail, ownerEmail, fileName,
	)
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{recipient}, []byte(msg))
}

// SharingService resolves a shared file by (owner, name) and hands it to the
// mailer. The result message is passed straight back to the caller.
type SharingService struct {
	Store  *store.RecordStore
	Mailer Mailer
}

func NewSharingService(records *store.RecordStore, mailer Mailer) *SharingService {
	return &SharingService{Store: records, Mailer: mailer}
}

func (s *SharingService) Share(ctx context.Context, owner *models.User, fileName, recipientEmail string) (string, error) {
	recipientEmail = strings.TrimSpace(recipientEmail)
	if recipientEmail == "" {
		return "", ErrEmptyRecipient
	}

	record, err := s.Store.ByOwnerAndName(ctx, owner.ID, fileName)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrFileNotFound
	}

	if err := s.Mailer.SendShareNotification(ctx, recipientEmail, record.Name, owner.Email); err != nil {
		return "", err
	}

	logger.InfoWithUser(owner.ID.String(), "file_shared", map[string]interface{}{
		"file_name": record.Name,
		"recipient": recipientEmail,
	})

	return "File shared successfully.", nil
}
