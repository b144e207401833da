package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/libris/internal/domain"
	"github.com/yourorg/libris/pkg/cache"
)

const authorSearchTTL = 30 * time.Second

// AuthorService handles author CRUD and search. Search results are held
// briefly in an in-memory TTL cache and dropped on any author write.
type AuthorService struct {
	repo   domain.AuthorRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewAuthorService creates a new author service.
func NewAuthorService(repo domain.AuthorRepository, c *cache.Cache, logger *slog.Logger) *AuthorService {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New()
	}

	return &AuthorService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// List returns authors, optionally filtered by name or nationality. A name
// filter wins over a nationality filter, matching the original API.
func (s *AuthorService) List(ctx context.Context, name, nationality string) ([]*domain.Author, error) {
	switch {
	case name != "":
		return s.cached(ctx, "authors:name:"+strings.ToLower(name), func() ([]*domain.Author, error) {
			return s.repo.SearchByName(ctx, name)
		})
	case nationality != "":
		return s.cached(ctx, "authors:nat:"+strings.ToLower(nationality), func() ([]*domain.Author, error) {
			return s.repo.ListByNationality(ctx, nationality)
		})
	default:
		return s.repo.List(ctx)
	}
}

// Get retrieves one author by id.
func (s *AuthorService) Get(ctx context.Context, id int64) (*domain.Author, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: author id must be positive", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new author. Any client-supplied id is
// discarded.
func (s *AuthorService) Create(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	if err := validateAuthor(author); err != nil {
		return nil, err
	}

	author.ID = 0
	if err := s.repo.Create(ctx, author); err != nil {
		return nil, err
	}

	s.cache.Invalidate("authors:")
	s.logger.Info("author created",
		slog.Int64("author_id", author.ID),
		slog.String("name", author.FullName()),
	)
	return author, nil
}

// CreateMany stores a bounded batch of authors.
func (s *AuthorService) CreateMany(ctx context.Context, authors []*domain.Author, limit int) ([]*domain.Author, error) {
	if len(authors) == 0 {
		return nil, fmt.Errorf("%w: author list cannot be empty", domain.ErrInvalidInput)
	}
	if limit > 0 && len(authors) > limit {
		return nil, fmt.Errorf("%w: at most %d authors per request", domain.ErrInvalidInput, limit)
	}

	for _, author := range authors {
		if err := validateAuthor(author); err != nil {
			return nil, err
		}
		author.ID = 0
	}

	if err := s.repo.CreateMany(ctx, authors); err != nil {
		return nil, err
	}

	s.cache.Invalidate("authors:")
	s.logger.Info("authors created in bulk", slog.Int("count", len(authors)))
	return authors, nil
}

// Update merges non-blank fields from patch into the stored author.
func (s *AuthorService) Update(ctx context.Context, id int64, patch *domain.Author) (*domain.Author, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: author id must be positive", domain.ErrInvalidInput)
	}

	author, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(patch.FirstName) != "" {
		author.FirstName = patch.FirstName
	}
	if strings.TrimSpace(patch.LastName) != "" {
		author.LastName = patch.LastName
	}
	if strings.TrimSpace(patch.Biography) != "" {
		author.Biography = patch.Biography
	}
	if strings.TrimSpace(patch.Nationality) != "" {
		author.Nationality = patch.Nationality
	}

	if err := s.repo.Update(ctx, author); err != nil {
		return nil, err
	}

	s.cache.Invalidate("authors:")
	return author, nil
}

// Delete removes an author.
func (s *AuthorService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: author id must be positive", domain.ErrInvalidInput)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate("authors:")
	s.logger.Info("author deleted", slog.Int64("author_id", id))
	return nil
}

func (s *AuthorService) cached(ctx context.Context, key string, load func() ([]*domain.Author, error)) ([]*domain.Author, error) {
	if v, ok := s.cache.Get(key); ok {
		if authors, ok := v.([]*domain.Author); ok {
			return authors, nil
		}
	}

	authors, err := load()
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, authors, authorSearchTTL)
	return authors, nil
}

func validateAuthor(author *domain.Author) error {
	if author == nil {
		return fmt.Errorf("%w: author data is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(author.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(author.LastName) == "" {
		return fmt.Errorf("%w: last name is required", domain.ErrInvalidInput)
	}
	return nil
}
