// Package contact forwards contact-form submissions to an email delivery
// service and optionally keeps a copy.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"poseai/internal/config"
)

var ErrInvalidRequest = errors.New("name, email, subject and message are required")

type Request struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Message is a stored submission.
type Message struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	Email     string `gorm:"type:varchar(255);not null" json:"email"`
	Phone     string `gorm:"type:varchar(50)" json:"phone"`
	Subject   string `gorm:"type:varchar(200);not null" json:"subject"`
	Message   string `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time
}

func (r Request) normalized() Request {
	clean := func(s string) string { return strings.TrimSpace(norm.NFC.String(s)) }
	return Request{
		Name:    clean(r.Name),
		Email:   clean(r.Email),
		Phone:   clean(r.Phone),
		Subject: clean(r.Subject),
		Message: clean(r.Message),
	}
}

func (r Request) valid() bool {
	return r.Name != "" && r.Email != "" && r.Subject != "" && r.Message != ""
}

var bodyTmpl = template.Must(template.New("contact").Parse(`<h2>A new inquiry has been received</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Inquiry type:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
`))

type email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer posts messages to a JSON email API with bearer authentication.
type Mailer struct {
	url    string
	apiKey string
	to     string
	client *http.Client
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{
		url:    cfg.ServiceURL,
		apiKey: cfg.APIKey,
		to:     cfg.AdminEmail,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (m *Mailer) Send(ctx context.Context, r Request) error {
	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, r); err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	payload, err := json.Marshal(email{
		To:      m.to,
		Subject: "[PoseAI] New inquiry: " + r.Subject,
		HTML:    body.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, r Request) error
}

type Store interface {
	SaveMessage(ctx context.Context, m *Message) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SaveMessage(ctx context.Context, m *Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

type Service struct {
	sender Sender
	store  Store
}

// NewService wires the contact flow. store may be nil.
func NewService(sender Sender, store Store) *Service {
	return &Service{sender: sender, store: store}
}

// Submit forwards the inquiry by email, then stores it. A storage failure
// after a successful send is logged and does not fail the submission.
func (s *Service) Submit(ctx context.Context, r Request) error {
	r = r.normalized()
	if !r.valid() {
		return ErrInvalidRequest
	}

	if err := s.sender.Send(ctx, r); err != nil {
		slog.Error("Contact form submission error", "error", err)
		return err
	}
	slog.Info("Contact inquiry forwarded", "subject", r.Subject)

	if s.store != nil {
		msg := &Message{
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			Subject:   r.Subject,
			Message:   r.Message,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.SaveMessage(ctx, msg); err != nil {
			slog.Warn("Failed to store contact message", "error", err)
		}
	}
	return nil
}
