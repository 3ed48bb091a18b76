package service

import (
	"testing"
	"time"

	"github.com/bigkaa/cloudbox/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	record := &model.FileRecord{
		ID:     "test-uuid-1",
		Name:   "test.txt",
		Type:   "text/plain",
		Size:   1024,
		UserID: alice,
	}

	if _, ok := cache.Get("test-uuid-1", alice); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set(record, cache.Epoch())
	got, ok := cache.Get("test-uuid-1", alice)
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.Name != "test.txt" {
		t.Errorf("Name = %q, ожидался %q", got.Name, "test.txt")
	}
}

// TestCacheService_OtherOwnerIsMiss — запись другого владельца не отдаётся из кэша.
func TestCacheService_OtherOwnerIsMiss(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(&model.FileRecord{ID: "shared-id", UserID: alice}, cache.Epoch())

	if _, ok := cache.Get("shared-id", bob); ok {
		t.Fatal("запись alice не должна отдаваться bob")
	}
	if _, ok := cache.Get("shared-id", ""); ok {
		t.Fatal("запись не должна отдаваться без владельца")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(&model.FileRecord{ID: "delete-me", UserID: alice}, cache.Epoch())

	if _, ok := cache.Get("delete-me", alice); !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	cache.Delete("delete-me")

	if _, ok := cache.Get("delete-me", alice); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	cache := NewCacheService(100, 50*time.Millisecond)
	cache.Set(&model.FileRecord{ID: "ttl-test", UserID: alice}, cache.Epoch())

	if _, ok := cache.Get("ttl-test", alice); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("ttl-test", alice); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set(&model.FileRecord{ID: "r1", UserID: alice}, cache.Epoch())
	cache.Set(&model.FileRecord{ID: "r2", UserID: alice}, cache.Epoch())
	cache.Set(&model.FileRecord{ID: "r3", UserID: alice}, cache.Epoch())

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, ожидалось 2", cache.Len())
	}
	if _, ok := cache.Get("r1", alice); ok {
		t.Error("r1 должна быть вытеснена")
	}
	if _, ok := cache.Get("r3", alice); !ok {
		t.Error("ожидался cache hit для r3")
	}
}

// TestCacheService_StaleFillAfterDelete — запись, прочитанная до инвалидации, в кэш не попадает.
func TestCacheService_StaleFillAfterDelete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	epoch := cache.Epoch()
	stale := &model.FileRecord{ID: "f1", UserID: alice, IsTrash: false}
	cache.Delete("f1")

	if cache.Set(stale, epoch) {
		t.Fatal("Set с устаревшей эпохой должен быть отброшен")
	}
	if _, ok := cache.Get("f1", alice); ok {
		t.Fatal("устаревшая запись не должна попасть в кэш")
	}

	if !cache.Set(stale, cache.Epoch()) {
		t.Fatal("Set с текущей эпохой должен быть принят")
	}
}
