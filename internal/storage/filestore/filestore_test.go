package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/storage/storagetest"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "vault")
	s, err := New(dir)
	require.NoError(t, err)
	return s, dir
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestNew_CreatesDirectory(t *testing.T) {
	_, dir := newTestStore(t)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, storage.ErrStorage)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
	_, err = New(file)
	assert.ErrorIs(t, err, storage.ErrStorage)
}

func TestCreate_FileLayout(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	require.NoError(t, s.Create(ctx, storagetest.NewRecord("github")))

	path := filepath.Join(dir, "github.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"service_name": "github",
		"otp_secret": "U2FsdGVkX1/Po6Vs7ZC2C2h1k7TzpFCDlafd/GKWvgHNa0syqVzBkhURZCsCo3/J",
		"otp_digit": 6,
		"otp_period": 30
	}`, string(data))

	// В каталоге только файл записи
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGet_ExistingVaultFormat(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	// Формат файлов исходной утилиты: base64 с переносами строк от openssl
	content := `{"service_name": "legacy", "otp_secret": "U2FsdGVkX19aPnkoQcFgFIWge+g2bX38Uc3h7XbDMKfMCc/K2W1H1H/mz8QH8eTY\nPrhmuVtsVeFe+epBLphygQ==\n", "otp_digit": 8, "otp_period": 60}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(content), 0600))

	rec, err := s.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", rec.ServiceName)
	assert.Equal(t, 8, rec.Digits)
	assert.Equal(t, 60, rec.Period)
	assert.Contains(t, rec.EncryptedSecret, "\n")
}

func TestGet_FileNameIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	content := `{"service_name": "old-name", "otp_secret": "blob", "otp_digit": 6, "otp_period": 30}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new-name.json"), []byte(content), 0600))

	rec, err := s.Get(ctx, "new-name")
	require.NoError(t, err)
	assert.Equal(t, "new-name", rec.ServiceName)
}

func TestScan_CorruptRecords(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	require.NoError(t, s.Create(ctx, storagetest.NewRecord("github")))
	require.NoError(t, s.Create(ctx, storagetest.NewRecord("gitlab")))

	corrupt := map[string]string{
		"broken.json":      `{"service_name": "broken", "otp_secr`,
		"no-secret.json":   `{"service_name": "no-secret", "otp_digit": 6, "otp_period": 30}`,
		"bad-type.json":    `{"service_name": "bad-type", "otp_secret": "blob", "otp_digit": "6", "otp_period": 30}`,
		"zero-period.json": `{"service_name": "zero-period", "otp_secret": "blob", "otp_digit": 6, "otp_period": 0}`,
	}
	for name, content := range corrupt {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}

	res, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "github", res.Records[0].ServiceName)
	assert.Equal(t, "gitlab", res.Records[1].ServiceName)

	require.Len(t, res.Failures, 4)
	for _, f := range res.Failures {
		assert.ErrorIs(t, f, storage.ErrCorruptRecord)
		assert.ErrorIs(t, f, storage.ErrStorage)
	}
	assert.Equal(t, "bad-type", res.Failures[0].ServiceName)

	// Get для поврежденной записи
	_, err = s.Get(ctx, "broken")
	assert.ErrorIs(t, err, storage.ErrCorruptRecord)

	// List видит все записи, включая поврежденные
	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad-type", "broken", "github", "gitlab", "no-secret", "zero-period"}, names)
}

func TestList_SkipsForeignEntries(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	require.NoError(t, s.Create(ctx, storagetest.NewRecord("github")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-1234"), []byte("partial"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("{}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(""), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0700))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"github"}, names)

	res, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Empty(t, res.Failures)
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Exists(ctx, "../etc/passwd")
	assert.Error(t, err)
	_, err = s.Get(ctx, "a/b")
	assert.Error(t, err)
	err = s.Delete(ctx, "")
	assert.Error(t, err)
}

func TestList_UnreadableDirectory(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)
	require.NoError(t, os.RemoveAll(dir))

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)

	_, err = s.Scan(ctx)
	assert.ErrorIs(t, err, storage.ErrStorage)
}
