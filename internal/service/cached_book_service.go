package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/internal/infrastructure/redis"
	"github.com/yourorg/libris/internal/observability/metrics"
	"github.com/yourorg/libris/internal/reliability/circuitbreaker"
)

// CachedBookService wraps BookService with a Redis read cache for GetByID
// and List. Cache failures are never surfaced: a circuit breaker trips after
// repeated Redis errors and reads bypass the cache until it recovers.
// Writes, including loan-driven availability changes, invalidate the cached
// entries.
type CachedBookService struct {
	*BookService
	cache   *redis.Client
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedBookService wraps books with a Redis read cache.
func NewCachedBookService(books *BookService, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedBookService {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := circuitbreaker.New(5, 2, 30*time.Second)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("book cache breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &CachedBookService{
		BookService: books,
		cache:       cache,
		breaker:     breaker,
		ttl:         ttl,
		logger:      logger,
	}
}

// Get retrieves one book, from cache when possible.
func (s *CachedBookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: book id must be positive", domain.ErrInvalidInput)
	}

	key := bookKey(id)
	if data, ok := s.cacheGet(ctx, key); ok {
		book := &domain.Book{}
		if err := json.Unmarshal([]byte(data), book); err == nil {
			metrics.ObserveBookCache("hit")
			return book, nil
		}
		// Corrupt entry: drop it and fall through to the database.
		s.cacheDelete(ctx, key)
	}

	book, err := s.BookService.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.ObserveBookCache("miss")
	s.cacheSet(ctx, key, book)
	return book, nil
}

// List returns one page of books, from cache when possible.
func (s *CachedBookService) List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error) {
	key := pageKey(page)
	if data, ok := s.cacheGet(ctx, key); ok {
		result := &domain.BookPage{}
		if err := json.Unmarshal([]byte(data), result); err == nil {
			metrics.ObserveBookCache("hit")
			return result, nil
		}
		s.cacheDelete(ctx, key)
	}

	result, err := s.BookService.List(ctx, page)
	if err != nil {
		return nil, err
	}

	metrics.ObserveBookCache("miss")
	s.cacheSet(ctx, key, result)
	return result, nil
}

// Create stores a book and drops cached pages.
func (s *CachedBookService) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	created, err := s.BookService.Create(ctx, book)
	if err != nil {
		return nil, err
	}
	s.invalidatePages(ctx)
	return created, nil
}

// CreateMany stores a batch and drops cached pages.
func (s *CachedBookService) CreateMany(ctx context.Context, books []*domain.Book, limit int) ([]*domain.Book, error) {
	created, err := s.BookService.CreateMany(ctx, books, limit)
	if err != nil {
		return nil, err
	}
	s.invalidatePages(ctx)
	return created, nil
}

// Update merges the patch and drops the cached entry and pages.
func (s *CachedBookService) Update(ctx context.Context, id int64, patch *domain.Book) (*domain.Book, error) {
	updated, err := s.BookService.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.InvalidateBook(ctx, id)
	return updated, nil
}

// Delete removes a book and drops the cached entry and pages.
func (s *CachedBookService) Delete(ctx context.Context, id int64) error {
	if err := s.BookService.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateBook(ctx, id)
	return nil
}

// InvalidateBook drops the cached entry for one book and all cached pages.
// The loan workflow calls this after flipping availability.
func (s *CachedBookService) InvalidateBook(ctx context.Context, bookID int64) {
	s.cacheDelete(ctx, bookKey(bookID))
	s.invalidatePages(ctx)
}

func (s *CachedBookService) invalidatePages(ctx context.Context) {
	if s.cache == nil || !s.breaker.Allow() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "books:page:*"); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("failed to invalidate book pages", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}

func (s *CachedBookService) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if !s.breaker.Allow() {
		metrics.ObserveBookCache("bypass")
		return "", false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.breaker.RecordFailure()
			s.logger.Warn("book cache read failed", slog.String("error", err.Error()))
		}
		return "", false
	}

	s.breaker.RecordSuccess()
	return data, true
}

func (s *CachedBookService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil || !s.breaker.Allow() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("book cache write failed", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}

func (s *CachedBookService) cacheDelete(ctx context.Context, key string) {
	if s.cache == nil || !s.breaker.Allow() {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}

func bookKey(id int64) string {
	return fmt.Sprintf("books:id:%d", id)
}

func pageKey(page domain.PageRequest) string {
	return fmt.Sprintf("books:page:%d:%d:%s:%s", page.Page, page.Size, page.SortBy, page.SortDirection)
}
