package skconsult

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Benim22/Skaply-sub000/internal/skconfig"
	"github.com/wneessen/go-mail"
)

// Mailer envoie une notification par email à l'équipe quand une
// demande de consultation arrive.
type Mailer struct {
	cfg skconfig.MailConfig
}

// NewMailer crée un Mailer. Si l'envoi est désactivé dans la
// configuration, Notify ne fait rien.
func NewMailer(cfg skconfig.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled indique si l'envoi d'emails est actif.
func (m *Mailer) Enabled() bool {
	return m.cfg.Enable
}

// Notify envoie la notification pour req. Retourne nil sans rien
// faire si l'envoi est désactivé.
func (m *Mailer) Notify(ctx context.Context, req *Request) error {
	if !m.cfg.Enable {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("adresse expéditeur invalide: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("adresse destinataire invalide: %w", err)
	}
	msg.SetGenHeader(mail.HeaderReplyTo, req.Email)
	msg.Subject(fmt.Sprintf("Ny konsultationsförfrågan – %s", req.Name))
	msg.SetBodyString(mail.TypeTextPlain, m.renderText(req))
	msg.AddAlternativeString(mail.TypeTextHTML, m.renderHTML(req))

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("client smtp: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("envoi de la notification: %w", err)
	}
	return nil
}

func (m *Mailer) renderText(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ny konsultationsförfrågan (%s)\n\n", req.Reference)
	fmt.Fprintf(&b, "Namn: %s\n", req.Name)
	fmt.Fprintf(&b, "E-post: %s\n", req.Email)
	if req.Phone != "" {
		fmt.Fprintf(&b, "Telefon: %s\n", req.Phone)
	}
	if req.Company != "" {
		fmt.Fprintf(&b, "Företag: %s\n", req.Company)
	}
	if req.ProjectType != "" {
		fmt.Fprintf(&b, "Projekttyp: %s\n", req.ProjectType)
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, "Budget: %s\n", req.Budget)
	}
	if req.Timeline != "" {
		fmt.Fprintf(&b, "Tidsram: %s\n", req.Timeline)
	}
	fmt.Fprintf(&b, "\nMeddelande:\n%s\n", req.Message)
	return b.String()
}

func (m *Mailer) renderHTML(req *Request) string {
	row := func(label, value string) string {
		if value == "" {
			return ""
		}
		return fmt.Sprintf("<tr><td><strong>%s</strong></td><td>%s</td></tr>",
			html.EscapeString(label), html.EscapeString(value))
	}

	var b strings.Builder
	b.WriteString("<h2>Ny konsultationsförfrågan</h2>")
	b.WriteString("<table>")
	b.WriteString(row("Referens", req.Reference))
	b.WriteString(row("Namn", req.Name))
	b.WriteString(row("E-post", req.Email))
	b.WriteString(row("Telefon", req.Phone))
	b.WriteString(row("Företag", req.Company))
	b.WriteString(row("Projekttyp", req.ProjectType))
	b.WriteString(row("Budget", req.Budget))
	b.WriteString(row("Tidsram", req.Timeline))
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p>%s</p>",
		strings.ReplaceAll(html.EscapeString(req.Message), "\n", "<br>"))
	return b.String()
}
