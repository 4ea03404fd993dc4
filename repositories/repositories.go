package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination 은 1부터 시작하는 page 와 page_size 이다.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize 는 잘못된 값을 기본값(1, 20)으로 바꾸고 page_size 를 100 으로 제한한다.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > maxPageSize {
		p.PageSize = defaultPageSize
	}
	return p
}

func (p Pagination) findOptions() *options.FindOptions {
	n := p.Normalize()
	return options.Find().
		SetSkip(int64((n.Page - 1) * n.PageSize)).
		SetLimit(int64(n.PageSize))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	results := make([]T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
