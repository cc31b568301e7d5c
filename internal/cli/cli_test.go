package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/otpkeeper/internal/config"
	"github.com/iudanet/otpkeeper/internal/crypto"
	"github.com/iudanet/otpkeeper/internal/iocli"
	"github.com/iudanet/otpkeeper/internal/resolver"
	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/storage/filestore"
	"github.com/iudanet/otpkeeper/internal/totp"
	"github.com/iudanet/otpkeeper/internal/transfer"
	"github.com/iudanet/otpkeeper/internal/vault"
)

const (
	testSecret   = "JBSWY3DPEHPK3PXP"
	testPassword = "correct horse"
)

var testTime = time.Unix(1700000000, 0)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

type fakeQR struct{}

func (fakeQR) Render(uri string) (string, error) {
	return "[qr " + uri + "]\n", nil
}

type fakeKeyring struct {
	stored    string
	forgotten bool
}

func (f *fakeKeyring) Store(password string) error {
	f.stored = password
	return nil
}

func (f *fakeKeyring) Forget() error {
	f.forgotten = true
	f.stored = ""
	return nil
}

// purposeRecorder запоминает, для чего запрашивался пароль
type purposeRecorder struct {
	password string
	purposes []resolver.Purpose
}

func (p *purposeRecorder) Resolve(ctx context.Context, purpose resolver.Purpose) (string, error) {
	p.purposes = append(p.purposes, purpose)
	return p.password, nil
}

type fixture struct {
	cli       *Cli
	io        *iocli.IOMock
	out       *bytes.Buffer
	clipboard *fakeClipboard
	keyring   *fakeKeyring
	passwords *purposeRecorder
	dir       string
	// seed и answer возвращаются из ReadPassword и ReadInput
	seed   string
	answer string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := filestore.New(dir)
	require.NoError(t, err)

	cipher := crypto.New(1000, false)
	cfg := config.Defaults()
	cfg.Dir = dir

	f := &fixture{
		out:       &bytes.Buffer{},
		clipboard: &fakeClipboard{},
		keyring:   &fakeKeyring{},
		passwords: &purposeRecorder{password: testPassword},
		dir:       dir,
		seed:      testSecret,
	}

	f.io = &iocli.IOMock{
		PrintlnFunc: func(a ...any) { fmt.Fprintln(f.out, a...) },
		PrintfFunc:  func(format string, a ...any) { fmt.Fprintf(f.out, format, a...) },
		ReadInputFunc: func(prompt string) (string, error) {
			return f.answer, nil
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			return f.seed, nil
		},
		WriteFunc: func(p []byte) (int, error) { return f.out.Write(p) },
	}

	f.cli = New(Options{
		IO:        f.io,
		Vault:     vault.NewService(store, cipher),
		Transfer:  transfer.NewEngine(store, cipher, nil),
		Passwords: f.passwords,
		Keyring:   f.keyring,
		Clipboard: f.clipboard,
		QR:        fakeQR{},
		Config:    &cfg,
		Version:   "1.2.3",
	})
	f.cli.now = func() time.Time { return testTime }

	return f
}

func (f *fixture) run(t *testing.T, command string, args ...string) error {
	t.Helper()
	f.out.Reset()
	return f.cli.Run(context.Background(), command, args)
}

func TestAddAndGet(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "add", "github"))
	assert.Equal(t, "Item github saved successfully\n", f.out.String())
	assert.Equal(t, []resolver.Purpose{resolver.PurposeCreate}, f.passwords.purposes)

	require.NoError(t, f.run(t, "get", "github"))
	assert.Equal(t, "324550\n", f.out.String())
	assert.Equal(t, resolver.PurposeUnlock, f.passwords.purposes[1])
	assert.Empty(t, f.clipboard.text)
}

func TestGet_SideOutputs(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	require.NoError(t, f.run(t, "get", "--copy", "github", "--uri", "--qr"))

	uri := "otpauth://totp/github?secret=JBSWY3DPEHPK3PXP&issuer=github&digits=6&period=30"
	assert.Equal(t,
		"324550\n"+uri+"\n[qr "+uri+"]\nCopied to clipboard, valid for 10s\n",
		f.out.String())
	assert.Equal(t, "324550", f.clipboard.text)
}

func TestGet_ClipboardFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	f.clipboard.err = errors.New("no display")
	err := f.run(t, "get", "github", "--copy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
	// Код уже выведен
	assert.Equal(t, "324550\n", f.out.String())
}

func TestAdd_Flags(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "add", "--digits", "8", "github", "--period", "60"))

	require.NoError(t, f.run(t, "get", "github", "--uri"))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 2)

	want, err := totp.Generate(testSecret, 8, 60, testTime)
	require.NoError(t, err)
	assert.Equal(t, want, lines[0])
	assert.Len(t, lines[0], 8)
	assert.Contains(t, lines[1], "digits=8&period=60")
}

func TestAdd_SecretIsNormalized(t *testing.T) {
	f := newFixture(t)
	f.seed = "  jbsw y3dp ehpk 3pxp\n"

	require.NoError(t, f.run(t, "add", "github"))
	require.NoError(t, f.run(t, "get", "github"))
	assert.Equal(t, "324550\n", f.out.String())
}

func TestAdd_Duplicate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	err := f.run(t, "add", "github")
	assert.ErrorIs(t, err, storage.ErrServiceAlreadyExists)
	assert.Contains(t, err.Error(), "github already exists")
	// Seed повторно не запрашивается
	assert.Len(t, f.io.ReadPasswordCalls(), 1)
}

func TestAdd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		args    []string
		wantErr error
	}{
		{name: "invalid seed", seed: "not-base32!", args: []string{"github"}, wantErr: totp.ErrInvalidSecretEncoding},
		{name: "empty seed", seed: "", args: []string{"github"}, wantErr: totp.ErrInvalidSecretEncoding},
		{name: "bad digits", seed: testSecret, args: []string{"github", "--digits", "0"}, wantErr: totp.ErrInvalidDigits},
		{name: "bad period", seed: testSecret, args: []string{"github", "--period", "-5"}, wantErr: totp.ErrInvalidPeriod},
		{name: "missing name", seed: testSecret, args: nil, wantErr: ErrUsage},
		{name: "two names", seed: testSecret, args: []string{"a", "b"}, wantErr: ErrUsage},
		{name: "unknown flag", seed: testSecret, args: []string{"github", "--algo", "sha256"}, wantErr: ErrUsage},
		{name: "digits not a number", seed: testSecret, args: []string{"github", "--digits", "six"}, wantErr: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed = tt.seed

			err := f.run(t, "add", tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)

			// Ничего не сохранено
			require.NoError(t, f.run(t, "list"))
			assert.Equal(t, "No OTP found\n", f.out.String())
		})
	}
}

func TestGet_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, "get", "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)
	assert.Empty(t, f.passwords.purposes, "пароль не запрашивается для несуществующего сервиса")

	require.NoError(t, f.run(t, "add", "github"))

	f.passwords.password = "wrong password"
	err = f.run(t, "get", "github")
	assert.ErrorIs(t, err, crypto.ErrWrongPassword)
	assert.Empty(t, f.out.String())

	assert.ErrorIs(t, f.run(t, "get"), ErrUsage)
}

func TestAdd_WrongPasswordForExistingVault(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	f.passwords.password = "another password"
	err := f.run(t, "add", "gitlab")
	assert.ErrorIs(t, err, crypto.ErrWrongPassword)

	require.NoError(t, f.run(t, "list"))
	assert.Equal(t, "github\n", f.out.String())
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	// Отказ от удаления
	f.answer = "no"
	require.NoError(t, f.run(t, "delete", "github"))
	assert.Equal(t, "Deletion cancelled.\n", f.out.String())
	require.Len(t, f.io.ReadInputCalls(), 1)
	assert.Contains(t, f.io.ReadInputCalls()[0].Prompt, "delete github")

	// Подтверждение
	f.answer = " Y "
	require.NoError(t, f.run(t, "delete", "github"))
	assert.Equal(t, "Item github deleted successfully\n", f.out.String())

	err := f.run(t, "delete", "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)
	assert.Contains(t, err.Error(), "github does not exist")
}

func TestDelete_Yes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	require.NoError(t, f.run(t, "delete", "--yes", "github"))
	assert.Empty(t, f.io.ReadInputCalls())

	require.NoError(t, f.run(t, "list"))
	assert.Equal(t, "No OTP found\n", f.out.String())
}

func TestList(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "list"))
	assert.Equal(t, "No OTP found\n", f.out.String())

	for _, name := range []string{"gitlab", "aws", "github"} {
		require.NoError(t, f.run(t, "add", name))
	}

	// Поврежденная запись не мешает выводу остальных
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "broken.json"), []byte("not json"), 0600))

	require.NoError(t, f.run(t, "list"))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "aws", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "broken (unreadable: "), lines[1])
	assert.Equal(t, []string{"github", "gitlab"}, lines[2:])

	assert.ErrorIs(t, f.run(t, "list", "extra"), ErrUsage)
}

func TestPrint(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "print"))
	assert.Equal(t, "No OTP found\n", f.out.String())
	assert.Empty(t, f.passwords.purposes)

	require.NoError(t, f.run(t, "add", "github"))
	require.NoError(t, f.run(t, "add", "aws"))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "broken.json"), []byte("{}"), 0600))

	require.NoError(t, f.run(t, "print"))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "aws: 324550", lines[0])
	assert.Equal(t, "github: 324550", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "broken: error: "), lines[2])

	f.passwords.password = "wrong password"
	assert.ErrorIs(t, f.run(t, "print"), crypto.ErrWrongPassword)
}

func TestExportImport(t *testing.T) {
	src := newFixture(t)
	require.NoError(t, src.run(t, "add", "github"))

	exportDir := t.TempDir()
	require.NoError(t, src.run(t, "export", filepath.Join(exportDir, "backup")))
	assert.Contains(t, src.out.String(), "Exported 1 items to ")
	assert.Contains(t, src.out.String(), "unencrypted")

	require.NoError(t, src.run(t, "export", filepath.Join(exportDir, "vault"), "--encrypted"))
	assert.NotContains(t, src.out.String(), "unencrypted")

	plain, err := filepath.Glob(filepath.Join(exportDir, "backup-*.json"))
	require.NoError(t, err)
	require.Len(t, plain, 1)

	sealed, err := filepath.Glob(filepath.Join(exportDir, "vault-*.json"))
	require.NoError(t, err)
	require.Len(t, sealed, 1)

	t.Run("plaintext", func(t *testing.T) {
		dst := newFixture(t)
		dst.passwords.password = "new vault password"

		require.NoError(t, dst.run(t, "import", plain[0]))
		assert.Equal(t, "Imported 1 items\n", dst.out.String())
		assert.Equal(t, []resolver.Purpose{resolver.PurposeCreate}, dst.passwords.purposes)

		require.NoError(t, dst.run(t, "get", "github"))
		assert.Equal(t, "324550\n", dst.out.String())
	})

	t.Run("encrypted", func(t *testing.T) {
		dst := newFixture(t)

		require.NoError(t, dst.run(t, "import", sealed[0], "--encrypted"))
		assert.Equal(t, "Imported 1 items\n", dst.out.String())
		assert.Empty(t, dst.passwords.purposes, "без --verify пароль не нужен")

		require.NoError(t, dst.run(t, "get", "github"))
		assert.Equal(t, "324550\n", dst.out.String())
	})

	t.Run("encrypted verify with wrong password", func(t *testing.T) {
		dst := newFixture(t)
		dst.passwords.password = "wrong password"

		err := dst.run(t, "import", "--encrypted", "--verify", sealed[0])
		assert.ErrorIs(t, err, crypto.ErrWrongPassword)

		require.NoError(t, dst.run(t, "list"))
		assert.Equal(t, "No OTP found\n", dst.out.String())
	})

	t.Run("verify needs encrypted", func(t *testing.T) {
		dst := newFixture(t)
		assert.ErrorIs(t, dst.run(t, "import", sealed[0], "--verify"), ErrUsage)
	})

	t.Run("malformed file", func(t *testing.T) {
		dst := newFixture(t)
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"github": {"service_name": "github"}}`), 0600))

		err := dst.run(t, "import", bad)
		assert.ErrorIs(t, err, transfer.ErrMalformedTransferFile)
	})
}

func TestExport_UsesExportDir(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	f.cli.cfg.ExportDir = t.TempDir()
	require.NoError(t, f.run(t, "export", "backup", "--encrypted"))

	files, err := filepath.Glob(filepath.Join(f.cli.cfg.ExportDir, "backup-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestKeyring(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run(t, "add", "github"))

	require.NoError(t, f.run(t, "keyring", "set"))
	assert.Equal(t, testPassword, f.keyring.stored)
	assert.Contains(t, f.out.String(), "use_keyring = true")

	f.cli.cfg.UseKeyring = true
	require.NoError(t, f.run(t, "keyring", "set"))
	assert.Equal(t, "Password stored in the OS keyring\n", f.out.String())

	require.NoError(t, f.run(t, "keyring", "forget"))
	assert.True(t, f.keyring.forgotten)
	assert.Empty(t, f.keyring.stored)

	// Неверный пароль не сохраняется
	f.passwords.password = "wrong password"
	assert.ErrorIs(t, f.run(t, "keyring", "set"), crypto.ErrWrongPassword)
	assert.Empty(t, f.keyring.stored)

	assert.ErrorIs(t, f.run(t, "keyring", "show"), ErrUsage)
	assert.ErrorIs(t, f.run(t, "keyring"), ErrUsage)
}

func TestRun_Misc(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "version"))
	assert.Equal(t, "otpkeeper 1.2.3\n", f.out.String())

	require.NoError(t, f.run(t, "help"))
	assert.Contains(t, f.out.String(), "Usage:")

	assert.ErrorIs(t, f.run(t, "frobnicate"), ErrUsage)
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		positional []string
		digits     int
		copyCode   bool
	}{
		{name: "no args", args: nil, positional: nil, digits: 6},
		{name: "flags first", args: []string{"--digits", "8", "--copy", "github"}, positional: []string{"github"}, digits: 8, copyCode: true},
		{name: "flags last", args: []string{"github", "-digits=7", "--copy"}, positional: []string{"github"}, digits: 7, copyCode: true},
		{name: "interleaved", args: []string{"a", "--digits", "8", "b"}, positional: []string{"a", "b"}, digits: 8},
		{name: "double dash", args: []string{"--copy", "--", "--digits", "x"}, positional: []string{"--digits", "x"}, digits: 6, copyCode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFlagSet("test")
			digits := fs.Int("digits", 6, "")
			copyCode := fs.Bool("copy", false, "")

			positional, err := parseArgs(fs, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.positional, positional)
			assert.Equal(t, tt.digits, *digits)
			assert.Equal(t, tt.copyCode, *copyCode)
		})
	}
}

func TestTerminalQR(t *testing.T) {
	qr, err := TerminalQR{}.Render("otpauth://totp/github?secret=JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEmpty(t, qr)
	assert.Greater(t, strings.Count(qr, "\n"), 10)
}
