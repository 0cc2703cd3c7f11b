// search.go — поиск по активным документам с LRU-кэшем результатов.
// Обёртка над hashicorp/golang-lru/v2/expirable. Кэш сбрасывается
// целиком при любом изменении каталога.
package service

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
)

// Prometheus-метрики кэша поиска.
var (
	searchCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dv_search_cache_hits_total",
		Help: "Общее количество попаданий в кэш поиска.",
	})
	searchCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dv_search_cache_misses_total",
		Help: "Общее количество промахов кэша поиска.",
	})
)

// SearchService — поиск по подстроке имени без учёта регистра.
type SearchService struct {
	manager *Manager
	cache   *expirable.LRU[string, []*model.Document]

	// generation увеличивается при каждом сбросе кэша; результат,
	// посчитанный до сброса, в кэш не попадает.
	mu          sync.Mutex
	generation  uint64
	unsubscribe func()
}

// NewSearchService создаёт сервис поиска и подписывает его на изменения каталога.
// maxSize — максимальное количество запросов в кэше, ttl — время жизни записи.
func NewSearchService(manager *Manager, maxSize int, ttl time.Duration) *SearchService {
	s := &SearchService{
		manager: manager,
		cache:   expirable.NewLRU[string, []*model.Document](maxSize, nil, ttl),
	}
	s.unsubscribe = manager.Subscribe(func(Event) { s.invalidate() })
	return s
}

// Search возвращает активные документы, имя которых содержит query.
// category (опционально) ограничивает результат одной категорией.
func (s *SearchService) Search(query string, category model.Category) []*model.Document {
	key := strings.ToLower(strings.TrimSpace(query)) + "\x00" + string(category)

	s.mu.Lock()
	cached, ok := s.cache.Get(key)
	gen := s.generation
	s.mu.Unlock()
	if ok {
		searchCacheHitsTotal.Inc()
		return cloneDocuments(cached)
	}
	searchCacheMissesTotal.Inc()

	found := s.manager.Search(query)
	result := make([]*model.Document, 0, len(found))
	for _, d := range found {
		if category == "" || d.Category == category {
			result = append(result, d)
		}
	}

	s.mu.Lock()
	if gen == s.generation {
		s.cache.Add(key, result)
	}
	s.mu.Unlock()

	return cloneDocuments(result)
}

// Close отписывает сервис от изменений каталога.
func (s *SearchService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *SearchService) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.Purge()
}

func cloneDocuments(docs []*model.Document) []*model.Document {
	out := make([]*model.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
