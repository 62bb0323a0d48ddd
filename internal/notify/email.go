package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"pcbuilder/internal/models"
	"pcbuilder/internal/pricedrop"

	"github.com/wneessen/go-mail"
)

// ErrNotConfigured means the notifier lacks the settings to deliver anything.
var ErrNotConfigured = errors.New("notifier not configured")

const dropSubject = "Price Drop Alert for Your Saved PC Build!"

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier sends one plain-text alert per build over SMTP with STARTTLS.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *log.Logger
	send   func(ctx context.Context, msg *mail.Msg) error
}

func NewEmailNotifier(cfg EmailConfig, logger *log.Logger) *EmailNotifier {
	if logger == nil {
		logger = log.New(os.Stdout, "[Email] ", log.LstdFlags)
	}
	n := &EmailNotifier{cfg: cfg, logger: logger}
	n.send = n.dialAndSend
	return n
}

func (n *EmailNotifier) Configured() bool {
	return n.cfg.Username != "" && n.cfg.Password != ""
}

func (n *EmailNotifier) OnDropsDetected(ctx context.Context, build models.SavedBuild, drops []pricedrop.Drop) error {
	if !n.Configured() {
		n.logger.Printf("Email credentials not configured, skipping alert for build %d", build.ID)
		return ErrNotConfigured
	}
	if build.User.Email == "" {
		return fmt.Errorf("build %d has no owner email", build.ID)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(build.User.Email); err != nil {
		return fmt.Errorf("invalid recipient for build %d: %w", build.ID, err)
	}
	msg.Subject(dropSubject)
	msg.SetBodyString(mail.TypeTextPlain, DropEmailBody(build.User, drops))

	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", build.User.Email, err)
	}
	n.logger.Printf("Email sent to %s for subject '%s'", build.User.Email, dropSubject)
	return nil
}

func (n *EmailNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// DropEmailBody renders the alert text for a build owner.
func DropEmailBody(user models.User, drops []pricedrop.Drop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", user.DisplayName())
	b.WriteString("Great news! We've found price drops for components in your saved PC build:\n\n")
	for _, d := range drops {
		fmt.Fprintf(&b, "- %s:\n", d.ProductName)
		fmt.Fprintf(&b, "  - Old Price: $%s\n", d.OldPrice.StringFixed(2))
		fmt.Fprintf(&b, "  - New Price: $%s (a saving of $%s!)\n", d.NewPrice.StringFixed(2), d.Saving().StringFixed(2))
		fmt.Fprintf(&b, "  - Retailer: %s\n", d.Retailer)
		fmt.Fprintf(&b, "  - Link: %s\n\n", d.URL)
	}
	b.WriteString("Log in to your account or visit our platform to review your updated build.\n\n")
	b.WriteString("Happy building,\nThe PC Builder Team")
	return b.String()
}
