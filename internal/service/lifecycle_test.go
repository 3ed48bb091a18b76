package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/cloudbox/internal/domain/model"
	"github.com/bigkaa/cloudbox/internal/repository/repotest"
)

const (
	alice = "user_alice"
	bob   = "user_bob"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newLifecycle создаёт сервис поверх in-memory хранилища.
func newLifecycle(t *testing.T) (*LifecycleService, *CatalogService, *repotest.MemoryFileRepository) {
	t.Helper()
	repo := repotest.NewMemoryFileRepository()
	cache := NewCacheService(100, time.Minute)
	return NewLifecycleService(repo, cache, testLogger()), NewCatalogService(repo, cache, testLogger()), repo
}

func seedFile(repo *repotest.MemoryFileRepository, owner, name string, isTrash bool) *model.FileRecord {
	return repo.Seed(model.FileRecord{
		Name:    name,
		Path:    "/" + name,
		Size:    1024,
		Type:    "image/png",
		FileURL: "https://media.example.com/" + name,
		UserID:  owner,
		IsTrash: isTrash,
	})
}

func TestMoveToTrash(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	f := seedFile(repo, alice, "photo.png", false)

	got, err := svc.MoveToTrash(context.Background(), alice, f.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrash)

	stored, ok := repo.Snapshot(f.ID)
	require.True(t, ok)
	assert.True(t, stored.IsTrash)
	assert.Equal(t, f.Name, stored.Name)
	assert.Equal(t, f.Size, stored.Size)
	assert.Equal(t, f.FileURL, stored.FileURL)
	assert.Equal(t, f.Path, stored.Path)
}

func TestMoveToTrash_Idempotent(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	f := seedFile(repo, alice, "photo.png", true)

	got, err := svc.MoveToTrash(context.Background(), alice, f.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrash)
}

func TestRestoreFromTrash(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	f := seedFile(repo, alice, "photo.png", true)

	got, err := svc.RestoreFromTrash(context.Background(), alice, f.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTrash)

	// Повторное восстановление — успешно, состояние не меняется
	got, err = svc.RestoreFromTrash(context.Background(), alice, f.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTrash)
}

func TestTrashThenRestore_RoundTrip(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	f := seedFile(repo, alice, "doc.pdf", false)
	ctx := context.Background()

	_, err := svc.MoveToTrash(ctx, alice, f.ID)
	require.NoError(t, err)
	_, err = svc.RestoreFromTrash(ctx, alice, f.ID)
	require.NoError(t, err)

	stored, ok := repo.Snapshot(f.ID)
	require.True(t, ok)
	assert.False(t, stored.IsTrash)
	assert.Equal(t, f.Name, stored.Name)
	assert.Equal(t, f.UserID, stored.UserID)
	assert.Equal(t, f.IsStarred, stored.IsStarred)
	assert.Equal(t, f.CreatedAt, stored.CreatedAt)
}

func TestPermanentlyDelete(t *testing.T) {
	tests := []struct {
		name    string
		isTrash bool
	}{
		{"из корзины", true},
		{"вне корзины", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, repo := newLifecycle(t)
			f := seedFile(repo, alice, "x.bin", tt.isTrash)

			got, err := svc.PermanentlyDelete(context.Background(), alice, f.ID)
			require.NoError(t, err)
			assert.Equal(t, f.ID, got.ID)
			assert.Equal(t, tt.isTrash, got.IsTrash)

			_, ok := repo.Snapshot(f.ID)
			assert.False(t, ok, "запись должна быть удалена")

			_, err = svc.PermanentlyDelete(context.Background(), alice, f.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestEmptyTrash(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	ctx := context.Background()

	f1 := seedFile(repo, alice, "f1", true)
	f2 := seedFile(repo, alice, "f2", true)
	f3 := seedFile(repo, alice, "f3", false)

	result, err := svc.EmptyTrash(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count())
	assert.Equal(t, "2 files permanently deleted", result.Message())
	assert.Equal(t, int64(2048), result.FreedBytes())

	deletedIDs := []string{result.Deleted[0].ID, result.Deleted[1].ID}
	assert.ElementsMatch(t, []string{f1.ID, f2.ID}, deletedIDs)

	_, ok := repo.Snapshot(f3.ID)
	assert.True(t, ok, "файл вне корзины не должен удаляться")

	// Повторная очистка — пустая корзина, не ошибка
	result, err = svc.EmptyTrash(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count())
	assert.Equal(t, "No files in trash", result.Message())
}

func TestEmptyTrash_OnlyCallerFiles(t *testing.T) {
	svc, _, repo := newLifecycle(t)

	seedFile(repo, alice, "a1", true)
	b1 := seedFile(repo, bob, "b1", true)

	result, err := svc.EmptyTrash(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())

	_, ok := repo.Snapshot(b1.ID)
	assert.True(t, ok, "корзина другого пользователя не должна очищаться")
}

func TestEmptyTrash_ConcurrentCallsDeleteOnce(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	for range 20 {
		seedFile(repo, alice, "t", true)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.EmptyTrash(context.Background(), alice)
			assert.NoError(t, err)
			mu.Lock()
			total += result.Count()
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, total, "каждая запись удаляется ровно одним вызовом")
	assert.Equal(t, 0, repo.Len())
}

func TestLifecycle_CrossTenantIsNotFound(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	ctx := context.Background()
	f := seedFile(repo, alice, "private.png", false)

	_, err := svc.MoveToTrash(ctx, bob, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RestoreFromTrash(ctx, bob, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.PermanentlyDelete(ctx, bob, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, ok := repo.Snapshot(f.ID)
	require.True(t, ok)
	assert.False(t, stored.IsTrash, "чужой запрос не должен менять запись")
}

func TestLifecycle_Unauthenticated(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	ctx := context.Background()
	f := seedFile(repo, alice, "a.png", false)

	_, err := svc.MoveToTrash(ctx, "", f.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.RestoreFromTrash(ctx, "  ", f.ID)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.PermanentlyDelete(ctx, "", "")
	assert.ErrorIs(t, err, ErrUnauthenticated, "аутентификация проверяется раньше ID")

	_, err = svc.EmptyTrash(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Equal(t, 0, repo.Calls(), "без аутентификации хранилище не вызывается")
}

func TestLifecycle_InvalidFileID(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	ctx := context.Background()

	_, err := svc.MoveToTrash(ctx, alice, "")
	require.ErrorIs(t, err, ErrInvalidRequest)
	var lerr *LifecycleError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, ReasonFileIDRequired, lerr.Reason)
	assert.Equal(t, OpMoveToTrash, lerr.Op)

	_, err = svc.RestoreFromTrash(ctx, alice, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.PermanentlyDelete(ctx, alice, "12345")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 0, repo.Calls())
}

func TestLifecycle_StorageFailure(t *testing.T) {
	svc, _, repo := newLifecycle(t)
	f := seedFile(repo, alice, "a.png", false)
	storageErr := errors.New("connection reset by peer")
	repo.FailWith(storageErr)

	_, err := svc.MoveToTrash(context.Background(), alice, f.ID)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = svc.EmptyTrash(context.Background(), alice)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestLifecycle_InvalidatesCache(t *testing.T) {
	svc, catalog, repo := newLifecycle(t)
	ctx := context.Background()
	f := seedFile(repo, alice, "cached.png", false)

	got, err := catalog.GetFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTrash)

	_, err = svc.MoveToTrash(ctx, alice, f.ID)
	require.NoError(t, err)

	got, err = catalog.GetFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrash, "кэш должен быть инвалидирован после MoveToTrash")

	_, err = svc.PermanentlyDelete(ctx, alice, f.ID)
	require.NoError(t, err)

	_, err = catalog.GetFile(ctx, alice, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycleError_Message(t *testing.T) {
	err := internal(OpDelete, errors.New("boom"))
	assert.Equal(t, "permanently_delete: внутренняя ошибка: boom", err.Error())

	err = invalidRequest(OpMoveToTrash, ReasonFileIDRequired)
	assert.Equal(t, "move_to_trash: некорректный запрос: File id is required!", err.Error())
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", resultLabel(nil))
	assert.Equal(t, "unauthenticated", resultLabel(unauthenticated(OpGetFile)))
	assert.Equal(t, "invalid", resultLabel(invalidRequest(OpGetFile, "x")))
	assert.Equal(t, "not_found", resultLabel(notFound(OpGetFile)))
	assert.Equal(t, "error", resultLabel(internal(OpGetFile, errors.New("x"))))
}

// pausingRepo останавливает первый GetOwned после чтения, пока тест не отпустит его.
type pausingRepo struct {
	*repotest.MemoryFileRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingRepo) GetOwned(ctx context.Context, fileID, userID string) (*model.FileRecord, error) {
	rec, err := p.MemoryFileRepository.GetOwned(ctx, fileID, userID)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return rec, err
}

func TestGetFile_ConcurrentTrashDoesNotLeaveStaleCache(t *testing.T) {
	repo := &pausingRepo{
		MemoryFileRepository: repotest.NewMemoryFileRepository(),
		read:                 make(chan struct{}),
		release:              make(chan struct{}),
	}
	cache := NewCacheService(100, time.Minute)
	lifecycle := NewLifecycleService(repo, cache, testLogger())
	catalog := NewCatalogService(repo, cache, testLogger())
	ctx := context.Background()

	f := repo.Seed(model.FileRecord{Name: "a.png", Path: "/a.png", Type: "image/png", UserID: alice})

	done := make(chan error, 1)
	go func() {
		_, err := catalog.GetFile(ctx, alice, f.ID)
		done <- err
	}()

	<-repo.read
	_, err := lifecycle.MoveToTrash(ctx, alice, f.ID)
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	got, err := catalog.GetFile(ctx, alice, f.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrash, "кэш не должен хранить запись, прочитанную до MoveToTrash")

	_, err = lifecycle.PermanentlyDelete(ctx, alice, f.ID)
	require.NoError(t, err)
	_, err = catalog.GetFile(ctx, alice, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
