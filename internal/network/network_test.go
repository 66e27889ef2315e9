package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/bnema/wayseat/internal/backend"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/wire"
)

const clickScript = `
clients:
  - id: 1
    name: term
    bind: [pointer]
    surfaces:
      - {name: main, width: 100, height: 100}
steps:
  - {op: pointer_enter, client: 1, surface: main, x: 10, y: 10}
  - {op: pointer_button, button: 272, state: pressed}
  - {op: pointer_button, button: 272, state: released}
`

func testOptions() backend.Options {
	return backend.Options{Capabilities: seat.CapAll}
}

// newTestKey generates an ed25519 key pair for a test client
func newTestKey(t *testing.T) (gossh.Signer, gossh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	sshPub, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return signer, sshPub
}

func writeAuthorizedKeys(t *testing.T, keys ...gossh.PublicKey) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("# test keys\n\n")
	for _, k := range keys {
		buf.Write(gossh.MarshalAuthorizedKey(k))
	}
	path := filepath.Join(t.TempDir(), "authorized_keys")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestAuthorizedKeys(t *testing.T) {
	_, allowed := newTestKey(t)
	_, other := newTestKey(t)

	keys, err := LoadAuthorizedKeys(writeAuthorizedKeys(t, allowed))
	require.NoError(t, err)
	assert.Equal(t, 1, keys.Len())
	assert.True(t, keys.Allows(allowed))
	assert.False(t, keys.Allows(other))
	assert.False(t, keys.Allows(nil))

	var empty *AuthorizedKeys
	assert.False(t, empty.Allows(allowed))
	assert.Zero(t, empty.Len())
}

func TestAuthorizedKeysErrors(t *testing.T) {
	_, err := LoadAuthorizedKeys(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to read authorized keys")

	_, err = ParseAuthorizedKeys([]byte("# ok\nssh-ed25519 not-base64\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		command []string
		want    Mode
		wantErr bool
	}{
		{nil, ModeText, false},
		{[]string{"text"}, ModeText, false},
		{[]string{"raw"}, ModeRaw, false},
		{[]string{"json"}, "", true},
		{[]string{"raw", "extra"}, "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.command)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.command)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestReplay(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var out bytes.Buffer
		res, err := Replay(context.Background(), strings.NewReader(clickScript), &out, ModeText, testOptions())
		require.NoError(t, err)
		assert.Equal(t, 3, res.Steps)
		assert.Equal(t, 3, res.Applied)
		assert.Positive(t, res.Messages)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		assert.Len(t, lines, res.Messages)
		assert.Contains(t, lines[0], "wl_seat.capabilities")
		assert.Contains(t, out.String(), "wl_pointer.button")
	})

	t.Run("raw mode", func(t *testing.T) {
		var out bytes.Buffer
		res, err := Replay(context.Background(), strings.NewReader(clickScript), &out, ModeRaw, testOptions())
		require.NoError(t, err)

		msgs, err := wire.ReadTrace(&out)
		require.NoError(t, err)
		assert.Len(t, msgs, res.Messages)
		assert.Equal(t, wire.SeatCapabilities, msgs[0].Op)
		assert.Len(t, filterOps(msgs, wire.PointerButton), 2)
	})

	t.Run("bad script", func(t *testing.T) {
		_, err := Replay(context.Background(), strings.NewReader("steps:\n  - {op: jump}\n"), &bytes.Buffer{}, ModeText, testOptions())
		assert.ErrorIs(t, err, backend.ErrUnknownOp)
	})

	t.Run("too large", func(t *testing.T) {
		big := strings.Repeat("#", MaxScriptSize+1)
		_, err := Replay(context.Background(), strings.NewReader(big), &bytes.Buffer{}, ModeText, testOptions())
		assert.ErrorIs(t, err, ErrScriptTooLarge)
	})

	t.Run("failing step reports progress", func(t *testing.T) {
		doc := clickScript + "  - {op: key, key: 1, state: held}\n"
		res, err := Replay(context.Background(), strings.NewReader(doc), &bytes.Buffer{}, ModeText, testOptions())
		assert.ErrorContains(t, err, "step 4")
		assert.Equal(t, 4, res.Steps)
		assert.Equal(t, 3, res.Applied)
	})
}

func filterOps(msgs []wire.Message, op wire.Opcode) []wire.Message {
	var out []wire.Message
	for _, m := range msgs {
		if m.Op == op {
			out = append(out, m)
		}
	}
	return out
}

func startTestServer(t *testing.T, onStart func(addr, fingerprint string), authorized ...gossh.PublicKey) *SSHServer {
	t.Helper()
	dir := t.TempDir()
	srv := NewSSHServer(ServerConfig{
		Address:            "127.0.0.1:0",
		HostKeyPath:        filepath.Join(dir, "host_ed25519"),
		AuthorizedKeysPath: writeAuthorizedKeys(t, authorized...),
		MaxSessions:        2,
	}, testOptions())
	srv.OnSessionStart = onStart

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	require.NoError(t, srv.Start(ctx))
	require.NotNil(t, srv.Addr())
	return srv
}

func dial(t *testing.T, srv *SSHServer, signer gossh.Signer) (*gossh.Client, error) {
	t.Helper()
	return gossh.Dial("tcp", srv.Addr().String(), &gossh.ClientConfig{
		User:            "tester",
		Auth:            []gossh.AuthMethod{gossh.PublicKeys(signer)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func TestSSHServerReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping SSH integration test in short mode")
	}

	signer, pub := newTestKey(t)
	started := make(chan string, 3)
	srv := startTestServer(t, func(addr, fingerprint string) {
		started <- fingerprint
	}, pub)

	client, err := dial(t, srv, signer)
	require.NoError(t, err)
	defer client.Close()

	t.Run("text", func(t *testing.T) {
		sess, err := client.NewSession()
		require.NoError(t, err)
		defer sess.Close()

		var stdout, stderr bytes.Buffer
		sess.Stdin = strings.NewReader(clickScript)
		sess.Stdout = &stdout
		sess.Stderr = &stderr
		require.NoError(t, sess.Run("text"))

		assert.Contains(t, stdout.String(), "wl_pointer.enter")
		assert.Contains(t, stderr.String(), "3 of 3 steps applied")
	})

	t.Run("raw", func(t *testing.T) {
		sess, err := client.NewSession()
		require.NoError(t, err)
		defer sess.Close()

		var stdout bytes.Buffer
		sess.Stdin = strings.NewReader(clickScript)
		sess.Stdout = &stdout
		require.NoError(t, sess.Run("raw"))

		msgs, err := wire.ReadTrace(&stdout)
		require.NoError(t, err)
		assert.NotEmpty(t, filterOps(msgs, wire.PointerEnter))
	})

	t.Run("failing script exits non-zero", func(t *testing.T) {
		sess, err := client.NewSession()
		require.NoError(t, err)
		defer sess.Close()

		var stderr bytes.Buffer
		sess.Stdin = strings.NewReader("steps:\n  - {op: jump}\n")
		sess.Stderr = &stderr
		err = sess.Run("text")

		var exitErr *gossh.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.ExitStatus())
		assert.Contains(t, stderr.String(), "unknown op")
	})

	require.Len(t, started, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, gossh.FingerprintSHA256(pub), <-started)
	}
	assert.Zero(t, srv.Sessions())
}

func TestSSHServerRejectsUnknownKey(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping SSH integration test in short mode")
	}

	_, allowed := newTestKey(t)
	stranger, _ := newTestKey(t)
	srv := startTestServer(t, nil, allowed)

	_, err := dial(t, srv, stranger)
	assert.ErrorContains(t, err, "unable to authenticate")
}

func TestSSHServerRequiresAuthorizedKeys(t *testing.T) {
	srv := NewSSHServer(ServerConfig{Address: "127.0.0.1:0"}, testOptions())
	assert.Error(t, srv.Start(context.Background()))

	srv = NewSSHServer(ServerConfig{
		Address:            "127.0.0.1:0",
		AuthorizedKeysPath: filepath.Join(t.TempDir(), "missing"),
	}, testOptions())
	assert.ErrorContains(t, srv.Start(context.Background()), "authorized keys")
}

func TestSSHServerStopOnCancel(t *testing.T) {
	_, pub := newTestKey(t)
	srv := NewSSHServer(ServerConfig{
		Address:            "127.0.0.1:0",
		HostKeyPath:        filepath.Join(t.TempDir(), "host_ed25519"),
		AuthorizedKeysPath: writeAuthorizedKeys(t, pub),
	}, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	cancel()

	select {
	case <-srv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
