package receiver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/driftmail/driftmail/internal/ingest"
	"github.com/driftmail/driftmail/internal/mailparse"
)

// ErrServerClosed is returned by ListenAndServe and Serve after Close.
var ErrServerClosed = smtp.ErrServerClosed

var errSMTPParse = &smtp.SMTPError{
	Code:         554,
	EnhancedCode: smtp.EnhancedCode{5, 6, 0},
	Message:      "Unparseable message content",
}

var errSMTPDeliver = &smtp.SMTPError{
	Code:         451,
	EnhancedCode: smtp.EnhancedCode{4, 3, 0},
	Message:      "Temporary delivery error",
}

type Config struct {
	Addr        string
	Domain      string
	StrictParse bool
	ReadTimeout time.Duration
	MaxBytes    int64
}

// Server accepts inbound SMTP sessions, parses each message and hands the
// result to a Recorder. Connections are handled on independent goroutines by
// go-smtp, so one slow peer never stalls another.
type Server struct {
	server *smtp.Server
	logger *slog.Logger
}

func New(cfg Config, recorder ingest.Recorder, logger *slog.Logger) *Server {
	backend := &backend{
		recorder: recorder,
		strict:   cfg.StrictParse,
		logger:   logger,
	}

	server := smtp.NewServer(backend)
	server.Addr = cfg.Addr
	server.Domain = cfg.Domain
	server.ReadTimeout = cfg.ReadTimeout
	server.WriteTimeout = cfg.ReadTimeout
	server.MaxMessageBytes = cfg.MaxBytes
	server.MaxRecipients = 50
	server.AllowInsecureAuth = true

	return &Server{server: server, logger: logger}
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("smtp server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

func (s *Server) Close() error {
	return s.server.Close()
}

type backend struct {
	recorder ingest.Recorder
	strict   bool
	logger   *slog.Logger
}

func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{
		backend: b,
		logger:  b.logger.With("session", uuid.NewString()),
	}, nil
}

type session struct {
	backend *backend
	logger  *slog.Logger
}

func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth accepts any credentials. Mailboxes here are disposable and anonymous,
// so there is nothing to authenticate against.
func (s *session) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return nil
	}), nil
}

func (s *session) Mail(from string, opts *smtp.MailOptions) error {
	return nil
}

func (s *session) Rcpt(to string, opts *smtp.RcptOptions) error {
	return nil
}

func (s *session) Data(r io.Reader) error {
	env, err := mailparse.Parse(r)
	if err != nil {
		s.logger.Error("failed to parse message", "error", err)
		if s.backend.strict {
			return errSMTPParse
		}
		// lenient mode: the sender sees success even though nothing is stored
		return nil
	}

	msg, err := s.backend.recorder.Record(context.Background(), env)
	if err != nil {
		s.logger.Error("failed to record message", "to", env.To, "error", err)
		return errSMTPDeliver
	}

	s.logger.Info("message accepted", "id", msg.ID, "to", msg.To)
	return nil
}

func (s *session) Reset() {}

func (s *session) Logout() error {
	return nil
}
