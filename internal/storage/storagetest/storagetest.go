// Package storagetest holds the behaviour every storage.Store backend must share.
// Backend tests call Run with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/otpkeeper/internal/storage"
	"github.com/iudanet/otpkeeper/internal/validation"
)

// Factory returns a new empty store; the backend registers its own cleanup
type Factory func(t *testing.T) storage.Store

// NewRecord формирует тестовую запись
func NewRecord(name string) *storage.Record {
	return &storage.Record{
		ServiceName:     name,
		EncryptedSecret: "U2FsdGVkX1/Po6Vs7ZC2C2h1k7TzpFCDlafd/GKWvgHNa0syqVzBkhURZCsCo3/J",
		Digits:          6,
		Period:          30,
	}
}

// Run executes the conformance suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newStore(t)) })
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, newStore(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, newStore(t)) })
	t.Run("PutOverwrites", func(t *testing.T) { testPutOverwrites(t, newStore(t)) })
	t.Run("ListSorted", func(t *testing.T) { testListSorted(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("Scan", func(t *testing.T) { testScan(t, newStore(t)) })
	t.Run("InvalidRecord", func(t *testing.T) { testInvalidRecord(t, newStore(t)) })
	t.Run("UnusualNames", func(t *testing.T) { testUnusualNames(t, newStore(t)) })
}

func testEmptyStore(t *testing.T, s storage.Store) {
	ctx := context.Background()

	names, err := s.List(ctx)
	assert.ErrorIs(t, err, storage.ErrNoRecords)
	assert.Empty(t, names)

	ok, err := s.Exists(ctx, "github")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)

	err = s.Delete(ctx, "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)

	res, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failures)
}

func testCreateGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	rec := NewRecord("github")
	rec.Digits = 8
	rec.Period = 60

	require.NoError(t, s.Create(ctx, rec))

	ok, err := s.Exists(ctx, "github")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Возвращается копия, а не ссылка на внутреннее состояние
	got.Digits = 7
	again, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, 8, again.Digits)
}

func testCreateDuplicate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, NewRecord("github")))

	dup := NewRecord("github")
	dup.EncryptedSecret = "U2FsdGVkX19csZhekwKwJ+sTDOIe3KjfeFkoP3+J5YyLIOZ7QICIaIbfgTkiPvtS"
	dup.Digits = 8

	err := s.Create(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrServiceAlreadyExists)

	// Исходная запись не изменилась
	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, NewRecord("github"), got)
}

func testPutOverwrites(t *testing.T, s storage.Store) {
	ctx := context.Background()

	// Put создает отсутствующую запись
	require.NoError(t, s.Put(ctx, NewRecord("github")))

	updated := NewRecord("github")
	updated.EncryptedSecret = "U2FsdGVkX19csZhekwKwJ+sTDOIe3KjfeFkoP3+J5YyLIOZ7QICIaIbfgTkiPvtS"
	updated.Period = 45
	require.NoError(t, s.Put(ctx, updated))

	got, err := s.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"github"}, names)
}

func testListSorted(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, name := range []string{"gitlab", "aws", "Zulu", "github", "aws-prod"} {
		require.NoError(t, s.Create(ctx, NewRecord(name)))
	}

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zulu", "aws", "aws-prod", "github", "gitlab"}, names)
}

func testDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, NewRecord("github")))
	require.NoError(t, s.Create(ctx, NewRecord("gitlab")))

	require.NoError(t, s.Delete(ctx, "github"))

	_, err := s.Get(ctx, "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)

	err = s.Delete(ctx, "github")
	assert.ErrorIs(t, err, storage.ErrServiceNotFound)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gitlab"}, names)

	// После удаления имя снова свободно
	require.NoError(t, s.Create(ctx, NewRecord("github")))
}

func testScan(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, name := range []string{"gitlab", "aws", "github"} {
		require.NoError(t, s.Create(ctx, NewRecord(name)))
	}

	res, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "aws", res.Records[0].ServiceName)
	assert.Equal(t, "github", res.Records[1].ServiceName)
	assert.Equal(t, "gitlab", res.Records[2].ServiceName)
	assert.Equal(t, []string{"aws", "github", "gitlab"}, res.Names())
}

func testInvalidRecord(t *testing.T, s storage.Store) {
	ctx := context.Background()

	tests := []struct {
		record  *storage.Record
		wantErr error
		name    string
	}{
		{name: "nil record", record: nil, wantErr: storage.ErrInvalidRecord},
		{name: "empty name", record: NewRecord(""), wantErr: validation.ErrInvalidServiceName},
		{name: "path traversal", record: NewRecord("../escape"), wantErr: validation.ErrInvalidServiceName},
		{name: "empty secret", record: &storage.Record{ServiceName: "a", Digits: 6, Period: 30}, wantErr: storage.ErrInvalidRecord},
		{name: "zero digits", record: &storage.Record{ServiceName: "a", EncryptedSecret: "x", Period: 30}, wantErr: storage.ErrInvalidRecord},
		{name: "zero period", record: &storage.Record{ServiceName: "a", EncryptedSecret: "x", Digits: 6}, wantErr: storage.ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Create(ctx, tt.record)
			assert.True(t, errors.Is(err, tt.wantErr), "Create: %v", err)
			err = s.Put(ctx, tt.record)
			assert.True(t, errors.Is(err, tt.wantErr), "Put: %v", err)
		})
	}

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, storage.ErrNoRecords, "невалидные записи не должны сохраняться")
}

func testUnusualNames(t *testing.T, s storage.Store) {
	ctx := context.Background()
	names := []string{"my bank", "почта", "user@example.com", "a.b.c", "x:y"}
	for _, name := range names {
		require.NoError(t, s.Create(ctx, NewRecord(name)), name)
	}

	for _, name := range names {
		got, err := s.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, name, got.ServiceName)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(names))
}
