// Пакет repotest — in-memory реализация repository.FileRepository для тестов.
// Семантика совпадает с SQL-реализацией: каждая операция фильтрует по владельцу,
// изменение и проверка владельца выполняются атомарно под одной блокировкой.
package repotest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/cloudbox/internal/domain/model"
	"github.com/bigkaa/cloudbox/internal/repository"
)

// MemoryFileRepository — потокобезопасное хранилище записей в памяти.
type MemoryFileRepository struct {
	mu    sync.Mutex
	files map[string]*model.FileRecord
	calls int
	// err — ошибка, возвращаемая всеми методами (имитация сбоя хранилища)
	err error
	now func() time.Time
}

var _ repository.FileRepository = (*MemoryFileRepository)(nil)

// NewMemoryFileRepository создаёт пустое хранилище.
func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{
		files: make(map[string]*model.FileRecord),
		now:   time.Now,
	}
}

// FailWith заставляет все последующие вызовы возвращать err (nil — отключить).
func (m *MemoryFileRepository) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls — количество обращений к хранилищу.
func (m *MemoryFileRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Seed добавляет запись напрямую (ID генерируется, если пуст) и возвращает её копию.
func (m *MemoryFileRepository) Seed(f model.FileRecord) *model.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = m.tick()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = f.CreatedAt
	}
	m.files[f.ID] = &f
	return clone(&f)
}

// Snapshot возвращает копию записи без учёта владельца (для проверок в тестах).
func (m *MemoryFileRepository) Snapshot(fileID string) (*model.FileRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, false
	}
	return clone(f), true
}

// Len — общее количество записей.
func (m *MemoryFileRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

func (m *MemoryFileRepository) Create(_ context.Context, f *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}
	f.ID = uuid.NewString()
	f.CreatedAt = m.tick()
	f.UpdatedAt = f.CreatedAt
	m.files[f.ID] = clone(f)
	return nil
}

func (m *MemoryFileRepository) GetOwned(_ context.Context, fileID, userID string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	f, ok := m.owned(fileID, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(f), nil
}

func (m *MemoryFileRepository) ListOwned(_ context.Context, userID string, filter repository.ListFilter) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	result := make([]*model.FileRecord, 0)
	for _, f := range m.files {
		if f.UserID != userID || f.IsTrash != filter.IsTrash {
			continue
		}
		if !filter.AllLevels && !sameParent(f.ParentID, filter.ParentID) {
			continue
		}
		if filter.IsStarred != nil && f.IsStarred != *filter.IsStarred {
			continue
		}
		result = append(result, clone(f))
	}
	slices.SortFunc(result, func(a, b *model.FileRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	return result, nil
}

func (m *MemoryFileRepository) SetTrash(_ context.Context, fileID, userID string, isTrash bool) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	f, ok := m.owned(fileID, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.IsTrash = isTrash
	f.UpdatedAt = m.tick()
	return clone(f), nil
}

func (m *MemoryFileRepository) ToggleStar(_ context.Context, fileID, userID string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	f, ok := m.owned(fileID, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.IsStarred = !f.IsStarred
	f.UpdatedAt = m.tick()
	return clone(f), nil
}

func (m *MemoryFileRepository) DeleteOwned(_ context.Context, fileID, userID string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	f, ok := m.owned(fileID, userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.files, fileID)
	return f, nil
}

func (m *MemoryFileRepository) DeleteTrashed(_ context.Context, userID string) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}
	deleted := make([]*model.FileRecord, 0)
	for id, f := range m.files {
		if f.UserID == userID && f.IsTrash {
			deleted = append(deleted, f)
			delete(m.files, id)
		}
	}
	return deleted, nil
}

// enter учитывает вызов и возвращает внедрённую ошибку. Вызывается под блокировкой.
func (m *MemoryFileRepository) enter() error {
	m.calls++
	return m.err
}

func (m *MemoryFileRepository) owned(fileID, userID string) (*model.FileRecord, bool) {
	f, ok := m.files[fileID]
	if !ok || f.UserID != userID {
		return nil, false
	}
	return f, true
}

// tick возвращает строго возрастающее время, чтобы порядок created_at был детерминирован.
func (m *MemoryFileRepository) tick() time.Time {
	t := m.now().UTC()
	m.now = func() time.Time { return t.Add(time.Millisecond) }
	return t
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func clone(f *model.FileRecord) *model.FileRecord {
	c := *f
	return &c
}
