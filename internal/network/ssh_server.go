package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	gossh "golang.org/x/crypto/ssh"

	"github.com/bnema/wayseat/internal/backend"
	"github.com/bnema/wayseat/internal/logger"
)

// ServerConfig configures an SSHServer
type ServerConfig struct {
	Address            string
	HostKeyPath        string // generated when missing
	AuthorizedKeysPath string
	MaxSessions        int // 0 means unlimited
}

// SSHServer replays scripts for SSH sessions. Every session gets its own
// seat, so sessions never see each other's input.
type SSHServer struct {
	cfg       ServerConfig
	opts      backend.Options
	sshServer *ssh.Server
	listener  net.Listener

	// Active sessions
	mu       sync.Mutex
	sessions map[string]*sshSession // sessionID -> session

	// Lifecycle
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	OnSessionStart func(addr, fingerprint string)
	OnSessionEnd   func(addr string, res Result, err error)
}

type sshSession struct {
	session     ssh.Session
	addr        string
	fingerprint string
}

// NewSSHServer creates a server replaying with opts
func NewSSHServer(cfg ServerConfig, opts backend.Options) *SSHServer {
	return &SSHServer{
		cfg:      cfg,
		opts:     opts,
		sessions: make(map[string]*sshSession),
		stop:     make(chan struct{}),
	}
}

// Start begins listening. It returns once the listener is bound.
func (s *SSHServer) Start(ctx context.Context) error {
	if s.cfg.AuthorizedKeysPath == "" {
		return errors.New("an authorized keys file is required")
	}
	if _, err := LoadAuthorizedKeys(s.cfg.AuthorizedKeysPath); err != nil {
		return err
	}

	server, err := wish.NewServer(
		wish.WithAddress(s.cfg.Address),
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			s.sessionHandler(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}
	s.sshServer = server

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		logger.Infof("SSH server listening on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Errorf("SSH server error: %v", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stop:
		}
	}()

	return nil
}

// Addr returns the bound address, nil before Start
func (s *SSHServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts down the server and closes every session
func (s *SSHServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		if s.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.sshServer.Shutdown(ctx)
		}

		s.mu.Lock()
		for _, sess := range s.sessions {
			_ = sess.session.Close()
		}
		s.sessions = make(map[string]*sshSession)
		s.mu.Unlock()

		s.wg.Wait()
	})
}

// Done is closed once Stop has been called
func (s *SSHServer) Done() <-chan struct{} {
	return s.stop
}

// Sessions returns the number of active sessions
func (s *SSHServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// publicKeyAuth accepts keys listed in the authorized keys file. The file
// is read on every attempt so edits apply without a restart.
func (s *SSHServer) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	addr := ctx.RemoteAddr().String()

	keys, err := LoadAuthorizedKeys(s.cfg.AuthorizedKeysPath)
	if err != nil {
		logger.Errorf("SSH key denied, %v", err)
		return false
	}
	if !keys.Allows(key) {
		logger.Infof("SSH key denied key=%s addr=%s user=%s", fingerprint, addr, ctx.User())
		return false
	}
	logger.Debugf("SSH key accepted key=%s addr=%s", fingerprint, addr)
	return true
}

func (s *SSHServer) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			logger.Debugf("SSH session started: user=%s addr=%s command=%v", sess.User(), sess.RemoteAddr(), sess.Command())
			h(sess)
			logger.Debugf("SSH session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

func (s *SSHServer) sessionHandler() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			addr := sess.RemoteAddr().String()

			s.mu.Lock()
			if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
				s.mu.Unlock()
				logger.Infof("Rejecting session - max sessions reached addr=%s", addr)
				fmt.Fprintln(sess.Stderr(), "server already has the maximum number of active sessions")
				_ = sess.Exit(1)
				return
			}

			var fingerprint string
			if sess.PublicKey() != nil {
				fingerprint = gossh.FingerprintSHA256(sess.PublicKey())
			}
			id := sess.Context().SessionID()
			s.sessions[id] = &sshSession{session: sess, addr: addr, fingerprint: fingerprint}
			s.mu.Unlock()

			if s.OnSessionStart != nil {
				s.OnSessionStart(addr, fingerprint)
			}

			res, err := s.replay(sess)

			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()

			if s.OnSessionEnd != nil {
				s.OnSessionEnd(addr, res, err)
			}

			if err != nil {
				fmt.Fprintf(sess.Stderr(), "error: %v\n", err)
				_ = sess.Exit(1)
				return
			}
			_ = sess.Exit(0)
		}
	}
}

func (s *SSHServer) replay(sess ssh.Session) (Result, error) {
	mode, err := ParseMode(sess.Command())
	if err != nil {
		return Result{}, err
	}

	res, err := Replay(sess.Context(), sess, sess, mode, s.opts)
	if err == nil && mode == ModeText {
		fmt.Fprintf(sess.Stderr(), "%d of %d steps applied, %d messages sent\n", res.Applied, res.Steps, res.Messages)
	}
	logger.Infof("Replayed %d of %d steps for %s (%s mode)", res.Applied, res.Steps, sess.RemoteAddr(), mode)
	return res, err
}
