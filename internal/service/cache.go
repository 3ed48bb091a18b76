// Пакет service — бизнес-логика cloudbox: жизненный цикл файлов
// (корзина, восстановление, удаление) и каталог владельца.
//
// CacheService — LRU-кэш метаданных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/cloudbox/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
	cacheStaleFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cb_cache_stale_fills_total",
		Help: "Заполнения кэша, отброшенные из-за инвалидации во время чтения.",
	})
)

// CacheService — LRU-кэш метаданных файлов с автоматическим TTL.
// Кэш локален для экземпляра; любая мутация записи удаляет её из кэша.
//
// Заполнение после чтения из БД идёт через эпоху инвалидации:
// Set с эпохой, полученной до чтения, отбрасывается, если между чтением
// и Set прошёл хотя бы один Delete.
type CacheService struct {
	mu    sync.Mutex
	epoch uint64
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает запись по fileID, если она принадлежит userID.
// Запись другого владельца считается промахом.
func (c *CacheService) Get(fileID, userID string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(fileID)
	if ok && val.OwnedBy(userID) {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Epoch — текущая эпоха инвалидации. Берётся до чтения записи из БД.
func (c *CacheService) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Set добавляет запись, прочитанную в эпоху epoch.
// Возвращает false, если после этого была инвалидация и запись могла устареть.
func (c *CacheService) Set(record *model.FileRecord, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		cacheStaleFillsTotal.Inc()
		return false
	}
	c.cache.Add(record.ID, record)
	return true
}

// Delete удаляет запись из кэша и начинает новую эпоху.
func (c *CacheService) Delete(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.cache.Remove(fileID)
}

// Len — количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
