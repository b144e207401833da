package domain

import "context"

// Author represents a book author.
type Author struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Biography   string `json:"biography,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	// BookIDs holds the ids of books linked through the book_authors join
	// table, resolved explicitly instead of through a lazy object graph.
	BookIDs []int64 `json:"bookIds,omitempty"`
}

// FullName returns the author's display name.
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AuthorRepository defines data access for authors.
type AuthorRepository interface {
	Create(ctx context.Context, author *Author) error
	CreateMany(ctx context.Context, authors []*Author) error
	GetByID(ctx context.Context, id int64) (*Author, error)
	List(ctx context.Context) ([]*Author, error)
	SearchByName(ctx context.Context, name string) ([]*Author, error)
	ListByNationality(ctx context.Context, nationality string) ([]*Author, error)
	Update(ctx context.Context, author *Author) error
	Delete(ctx context.Context, id int64) error
}
