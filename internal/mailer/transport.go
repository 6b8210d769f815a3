// Package mailer delivers single messages through a user's SMTP profile.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/model"
)

const (
	SentMessage           = "Email sent successfully"
	ConnectionSuccessText = "SMTP connection successful"
)

// Transport talks SMTP. It is safe for concurrent use; every call opens its own connection.
type Transport struct {
	timeout   time.Duration
	textPol   *bluemonday.Policy
	tlsConfig func(host string) *tls.Config
}

// NewTransport returns a Transport whose connections time out after timeout.
func NewTransport(timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		timeout: timeout,
		textPol: bluemonday.StrictPolicy(),
		tlsConfig: func(host string) *tls.Config {
			return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
		},
	}
}

// Send delivers one HTML message. Every failure is reported as (false, "Failed to send email: ...").
func (t *Transport) Send(ctx context.Context, profile *model.SMTPProfile, recipient, subject, htmlBody string) (bool, string) {
	if err := t.send(ctx, profile, recipient, subject, htmlBody); err != nil {
		return false, "Failed to send email: " + err.Error()
	}
	return true, SentMessage
}

// TestConnection runs connect, TLS and auth without sending anything.
func (t *Transport) TestConnection(ctx context.Context, profile *model.SMTPProfile) (bool, string) {
	err := func() error {
		if err := validate(profile); err != nil {
			return err
		}
		c, err := t.dial(ctx, profile)
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Quit()
	}()
	if err != nil {
		return false, "SMTP connection failed: " + err.Error()
	}
	return true, ConnectionSuccessText
}

func (t *Transport) send(ctx context.Context, profile *model.SMTPProfile, recipient, subject, htmlBody string) error {
	if err := validate(profile); err != nil {
		return err
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("missing recipient address")
	}

	msg, err := t.buildMessage(profile, recipient, subject, htmlBody)
	if err != nil {
		return err
	}

	c, err := t.dial(ctx, profile)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(profile.FromEmail); err != nil {
		return errors.Wrap(err, "failed to set sender")
	}
	if err := c.Rcpt(recipient); err != nil {
		return errors.Wrapf(err, "failed to set recipient %s", recipient)
	}
	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "failed to get data writer")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish message")
	}
	return c.Quit()
}

// dial connects, upgrades to TLS when asked, and authenticates.
func (t *Transport) dial(ctx context.Context, profile *model.SMTPProfile) (*smtp.Client, error) {
	addr := net.JoinHostPort(profile.Host, strconv.Itoa(profile.Port))

	dialer := &net.Dialer{Timeout: t.timeout}
	var (
		conn net.Conn
		err  error
	)
	if profile.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: t.tlsConfig(profile.Host)}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", addr)
	}
	_ = conn.SetDeadline(time.Now().Add(t.timeout))

	c, err := smtp.NewClient(conn, profile.Host)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to start SMTP session")
	}

	if profile.UseTLS && profile.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			_ = c.Close()
			return nil, errors.New("server does not support STARTTLS")
		}
		if err := c.StartTLS(t.tlsConfig(profile.Host)); err != nil {
			_ = c.Close()
			return nil, errors.Wrap(err, "failed to start TLS")
		}
	}

	ok, mechs := c.Extension("AUTH")
	if !ok {
		_ = c.Close()
		return nil, errors.New("SMTP AUTH extension not supported by server")
	}
	if err := c.Auth(newAuth(mechs, profile.Username, profile.Password)); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "authentication failed")
	}
	return c, nil
}

func validate(p *model.SMTPProfile) error {
	if p == nil {
		return errors.New("SMTP configuration is missing")
	}
	var missing []string
	if strings.TrimSpace(p.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(p.FromEmail) == "" {
		missing = append(missing, "from email")
	}
	if strings.TrimSpace(p.Username) == "" {
		missing = append(missing, "username")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete SMTP configuration: missing %s", strings.Join(missing, ", "))
	}
	if p.Port <= 0 {
		return fmt.Errorf("invalid SMTP port %d", p.Port)
	}
	return nil
}

func (t *Transport) buildMessage(p *model.SMTPProfile, recipient, subject, htmlBody string) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: p.FromName, Address: p.FromEmail}})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	if p.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: p.ReplyTo}})
	}
	h.SetMessageID(fmt.Sprintf("%s@%s", uuid.NewString(), domainOf(p.FromEmail)))

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}
	alt, err := mw.CreateInline()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create alternative part")
	}
	if err := writePart(alt, "text/plain", t.plainText(htmlBody)); err != nil {
		return nil, err
	}
	if err := writePart(alt, "text/html", htmlBody); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close alternative part")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close message")
	}
	return buf.Bytes(), nil
}

func writePart(alt *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := alt.CreatePart(ph)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s part", contentType)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return errors.Wrapf(err, "failed to write %s part", contentType)
	}
	return w.Close()
}

// plainText strips markup for the text/plain alternative.
func (t *Transport) plainText(htmlBody string) string {
	text := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "</p>\n").Replace(htmlBody)
	return strings.TrimSpace(html.UnescapeString(t.textPol.Sanitize(text)))
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// saslAuth adapts a go-sasl client to net/smtp. Unlike smtp.PlainAuth it does not refuse
// plaintext connections; STARTTLS is the profile's decision.
type saslAuth struct {
	client sasl.Client
}

func newAuth(mechs, username, password string) smtp.Auth {
	supported := strings.Fields(strings.ToUpper(mechs))
	hasPlain := false
	hasLogin := false
	for _, m := range supported {
		switch m {
		case sasl.Plain:
			hasPlain = true
		case sasl.Login:
			hasLogin = true
		}
	}
	if hasLogin && !hasPlain {
		return &saslAuth{client: sasl.NewLoginClient(username, password)}
	}
	return &saslAuth{client: sasl.NewPlainClient("", username, password)}
}

func (a *saslAuth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	return a.client.Start()
}

func (a *saslAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	return a.client.Next(fromServer)
}
