package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/smtp"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/realtime"
)

// SendMailFunc matches smtp.SendMail so tests can capture outgoing mail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailSink emails the recipient over SMTP. Without an SMTP host it only logs.
type MailSink struct {
	Cfg      config.MailConfig
	Log      *logrus.Entry
	SendMail SendMailFunc
}

func NewMailSink(cfg config.MailConfig, log *logrus.Entry) *MailSink {
	return &MailSink{Cfg: cfg, Log: log, SendMail: smtp.SendMail}
}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Deliver(ctx context.Context, e Event) error {
	if e.Email == "" {
		return nil
	}
	if s.Cfg.SMTPHost == "" {
		s.Log.WithFields(logrus.Fields{"to": e.Email, "subject": e.Title()}).Info("smtp disabled, mail not sent")
		return nil
	}

	msg := "From: " + s.Cfg.From + "\r\n" +
		"To: " + e.Email + "\r\n" +
		"Subject: " + e.Title() + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", html.EscapeString(e.Name), html.EscapeString(e.Body()))

	var auth smtp.Auth
	if s.Cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.Cfg.SMTPUser, s.Cfg.SMTPPass, s.Cfg.SMTPHost)
	}

	// net/smtp has no context support; run it aside so a stuck server
	// cannot hold the worker past the sink timeout.
	errc := make(chan error, 1)
	go func() {
		errc <- s.SendMail(s.Cfg.SMTPHost+":"+s.Cfg.SMTPPort, auth, s.Cfg.From, []string{e.Email}, []byte(msg))
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

// InboxSink stores the event as a Notification row.
type InboxSink struct {
	DB *gorm.DB
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	n := models.Notification{
		UserID:  e.UserID,
		Kind:    string(e.Kind),
		Title:   e.Title(),
		Body:    e.Body(),
		Payload: datatypes.JSON(payload),
	}
	return s.DB.WithContext(ctx).Create(&n).Error
}

// RedisSink publishes on the recipient's channel; the realtime.Relay of
// every instance forwards it to open sockets.
type RedisSink struct {
	RDB *redis.Client
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Push())
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}
	return s.RDB.Publish(ctx, realtime.NotificationChannel(e.UserID), payload).Err()
}

// HubSink pushes straight to local sockets; used when Redis is disabled.
type HubSink struct {
	Hub *realtime.Hub
}

func (s *HubSink) Name() string { return "hub" }

func (s *HubSink) Deliver(_ context.Context, e Event) error {
	s.Hub.SendToUser(e.UserID, e.Push())
	return nil
}
