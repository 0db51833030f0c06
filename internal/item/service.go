package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/item/entity"
	itemrepo "github.com/ovaphlow/pitchfork/service-crud-api/internal/item/repo"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/store"
)

var (
	ErrInvalidItem   = errors.New("invalid item")
	ErrOwnerNotFound = errors.New("owner not found")
)

type ItemService struct {
	repo *itemrepo.ItemRepo
}

func NewItemService(r *itemrepo.ItemRepo) *ItemService {
	return &ItemService{repo: r}
}

func (s *ItemService) List(ctx context.Context, skip, limit int) ([]entity.Item, error) {
	return s.repo.List(ctx, skip, limit)
}

func (s *ItemService) ListForOwner(ctx context.Context, ownerID int64, skip, limit int) ([]entity.Item, error) {
	return s.repo.ListForOwner(ctx, ownerID, skip, limit)
}

// CreateForOwner validates in and stores it for ownerID.
func (s *ItemService) CreateForOwner(ctx context.Context, in entity.ItemCreate, ownerID int64) (*entity.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || len(in.Name) > 100 {
		return nil, fmt.Errorf("%w: name must be 1 to 100 bytes", ErrInvalidItem)
	}
	it, err := s.repo.CreateForOwner(ctx, in, ownerID)
	if errors.Is(err, store.ErrConstraintViolation) {
		return nil, fmt.Errorf("%w: %d", ErrOwnerNotFound, ownerID)
	}
	return it, err
}
