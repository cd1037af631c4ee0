// Package mailer renders storefront emails from embedded templates and sends them over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Template names shipped with the binary.
const (
	TemplateLowStock       = "low_stock"
	TemplateOrderCreated   = "order_created"
	TemplateOrderStatus    = "order_status"
	TemplateShipmentStatus = "shipment_status"
	TemplateReturnStatus   = "return_status"
)

// Message is one outgoing email. Data feeds both the html and the plain text template.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialFunc func(msgs ...*gomail.Message) error

// SMTPSender renders templates and hands the message to an SMTP dialer.
type SMTPSender struct {
	cfg   config.MailConfig
	brand string
	html  *htmltemplate.Template
	text  *texttemplate.Template
	dial  dialFunc
	logg  *logger.Logger
}

// New builds the sender for cfg. With mail disabled the returned sender logs and drops messages.
func New(cfg config.MailConfig, storefront config.StorefrontConfig, logg *logger.Logger) (*SMTPSender, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	s := &SMTPSender{cfg: cfg, brand: storefront.Name, html: html, text: text, logg: logg}
	if cfg.Enabled {
		if cfg.Host == "" || cfg.From == "" {
			return nil, errors.New("smtp host and from address are required when mail is enabled")
		}
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		d.SSL = cfg.SSL
		s.dial = d.DialAndSend
	}
	return s, nil
}

// Send renders msg and delivers it.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient required")
	}
	htmlBody, plainBody, err := s.render(msg)
	if err != nil {
		return err
	}
	if s.dial == nil {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"to": msg.To, "template": msg.Template})
			s.logg.Debug(logCtx, "mail disabled, message dropped")
		}
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)
	if err := s.dial(m); err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Template, err)
	}
	return nil
}

func (s *SMTPSender) render(msg Message) (string, string, error) {
	data := make(map[string]any, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["Store"] = s.brand

	var htmlBuf bytes.Buffer
	if err := s.html.ExecuteTemplate(&htmlBuf, msg.Template+".html", data); err != nil {
		return "", "", fmt.Errorf("render html %s: %w", msg.Template, err)
	}
	var textBuf bytes.Buffer
	if err := s.text.ExecuteTemplate(&textBuf, msg.Template+".txt", data); err != nil {
		return "", "", fmt.Errorf("render plain %s: %w", msg.Template, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}
