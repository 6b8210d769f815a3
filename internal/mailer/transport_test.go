package mailer

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldreach-backend/internal/model"
)

// miniSMTPServer speaks just enough SMTP for the transport.
type miniSMTPServer struct {
	listener   net.Listener
	rejectAuth atomic.Bool
	noAuth     atomic.Bool

	mu       sync.Mutex
	messages []string
	commands []string
}

func startMiniSMTPServer(t *testing.T) *miniSMTPServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to start SMTP server")

	s := &miniSMTPServer{listener: listener}
	go s.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return s
}

func (s *miniSMTPServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *miniSMTPServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			s.handle(conn)
		}()
	}
}

func (s *miniSMTPServer) handle(conn net.Conn) {
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	reply := func(lines string) {
		writer.WriteString(lines)
		writer.Flush()
	}

	reply("220 localhost ESMTP Test Server\r\n")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		s.record(line)

		switch {
		case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
			if s.noAuth.Load() {
				reply("250-localhost\r\n250 HELP\r\n")
			} else {
				reply("250-localhost\r\n250-AUTH PLAIN LOGIN\r\n250 HELP\r\n")
			}
		case strings.HasPrefix(line, "AUTH"):
			if s.rejectAuth.Load() {
				reply("535 5.7.8 auth rejected\r\n")
			} else {
				reply("235 2.7.0 Authentication successful\r\n")
			}
		case strings.HasPrefix(line, "MAIL FROM:"), strings.HasPrefix(line, "RCPT TO:"), line == "NOOP", line == "RSET":
			reply("250 OK\r\n")
		case line == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>\r\n")
			var msg strings.Builder
			for {
				l, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(l, "\r\n") == "." {
					break
				}
				msg.WriteString(l)
			}
			s.mu.Lock()
			s.messages = append(s.messages, msg.String())
			s.mu.Unlock()
			reply("250 OK\r\n")
		case line == "QUIT":
			reply("221 localhost closing connection\r\n")
			return
		default:
			reply("500 Syntax error\r\n")
		}
	}
}

func (s *miniSMTPServer) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, line)
}

func (s *miniSMTPServer) snapshot() (messages, commands []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...), append([]string(nil), s.commands...)
}

func profileFor(port int) *model.SMTPProfile {
	return &model.SMTPProfile{
		Host:      "127.0.0.1",
		Port:      port,
		Username:  "mailer",
		Password:  "secret",
		FromEmail: "sam@example.com",
		FromName:  "Sam Sender",
		ReplyTo:   "replies@example.com",
	}
}

func TestSend_Success(t *testing.T) {
	server := startMiniSMTPServer(t)
	transport := NewTransport(5 * time.Second)

	ok, msg := transport.Send(context.Background(), profileFor(server.port()), "ada@initech.com", "Quick question",
		`<html><body><p>Hi Ada &amp; team</p></body></html>`)

	require.True(t, ok, msg)
	assert.Equal(t, "Email sent successfully", msg)

	messages, commands := server.snapshot()
	require.Len(t, messages, 1)
	raw := messages[0]
	assert.Contains(t, raw, "Subject: Quick question")
	assert.Contains(t, raw, `From: "Sam Sender" <sam@example.com>`)
	assert.Contains(t, raw, "To: <ada@initech.com>")
	assert.Contains(t, raw, "Reply-To: <replies@example.com>")
	assert.Contains(t, raw, "@example.com>")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "Hi Ada & team")

	assert.Contains(t, commands, "MAIL FROM:<sam@example.com>")
	assert.Contains(t, commands, "RCPT TO:<ada@initech.com>")
	var sawAuth bool
	for _, c := range commands {
		if strings.HasPrefix(c, "AUTH PLAIN") {
			sawAuth = true
		}
	}
	assert.True(t, sawAuth)
}

func TestSend_AuthRejected(t *testing.T) {
	server := startMiniSMTPServer(t)
	server.rejectAuth.Store(true)

	ok, msg := NewTransport(5*time.Second).Send(context.Background(), profileFor(server.port()), "ada@initech.com", "s", "<p>x</p>")

	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "Failed to send email: "), msg)
	assert.Contains(t, msg, "auth rejected")
	messages, _ := server.snapshot()
	assert.Empty(t, messages)
}

func TestSend_ServerWithoutAuth(t *testing.T) {
	server := startMiniSMTPServer(t)
	server.noAuth.Store(true)

	ok, msg := NewTransport(5*time.Second).Send(context.Background(), profileFor(server.port()), "ada@initech.com", "s", "<p>x</p>")

	assert.False(t, ok)
	assert.Contains(t, msg, "AUTH extension not supported")
}

func TestSend_TLSRequiredButUnavailable(t *testing.T) {
	server := startMiniSMTPServer(t)
	profile := profileFor(server.port())
	profile.UseTLS = true

	ok, msg := NewTransport(5*time.Second).Send(context.Background(), profile, "ada@initech.com", "s", "<p>x</p>")

	assert.False(t, ok)
	assert.Contains(t, msg, "STARTTLS")
}

func TestSend_IncompleteProfileFailsFast(t *testing.T) {
	ok, msg := NewTransport(time.Second).Send(context.Background(), &model.SMTPProfile{Host: "smtp.example.com", Port: 587}, "a@b.com", "s", "x")

	assert.False(t, ok)
	assert.Equal(t, "Failed to send email: incomplete SMTP configuration: missing from email, username, password", msg)
}

func TestSend_MissingRecipient(t *testing.T) {
	ok, msg := NewTransport(time.Second).Send(context.Background(), profileFor(2525), " ", "s", "x")

	assert.False(t, ok)
	assert.Equal(t, "Failed to send email: missing recipient address", msg)
}

func TestSend_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ok, msg := NewTransport(time.Second).Send(context.Background(), profileFor(port), "a@b.com", "s", "x")

	assert.False(t, ok)
	assert.Contains(t, msg, "failed to connect to 127.0.0.1:"+strconv.Itoa(port))
}

func TestTestConnection(t *testing.T) {
	server := startMiniSMTPServer(t)
	transport := NewTransport(5 * time.Second)

	ok, msg := transport.TestConnection(context.Background(), profileFor(server.port()))
	assert.True(t, ok, msg)
	assert.Equal(t, "SMTP connection successful", msg)

	messages, commands := server.snapshot()
	assert.Empty(t, messages)
	assert.NotContains(t, commands, "DATA")

	server.rejectAuth.Store(true)
	ok, msg = transport.TestConnection(context.Background(), profileFor(server.port()))
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(msg, "SMTP connection failed: "), msg)
}

func TestPlainText(t *testing.T) {
	tr := NewTransport(time.Second)

	assert.Equal(t, "Hello\nWorld & co", tr.plainText("<p>Hello</p><p>World &amp; co</p>"))
}
