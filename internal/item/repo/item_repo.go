package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/item/entity"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/store"
)

var itemsTable = store.Table{
	Name:       "items",
	Columns:    []string{"id", "name", "description", "owner_id"},
	Insertable: []string{"name", "description", "owner_id"},
	Updatable:  []string{"name", "description"},
}

// ItemRepo provides data access for the items table.
type ItemRepo struct {
	store *store.Store[entity.Item, entity.ItemCreate, entity.ItemUpdate]
}

func NewItemRepo(db *sqlx.DB) *ItemRepo {
	return &ItemRepo{store: store.New[entity.Item, entity.ItemCreate, entity.ItemUpdate](db, itemsTable)}
}

func (r *ItemRepo) Get(ctx context.Context, id int64) (*entity.Item, error) {
	return r.store.Get(ctx, id)
}

func (r *ItemRepo) List(ctx context.Context, skip, limit int) ([]entity.Item, error) {
	return r.store.List(ctx, skip, limit)
}

// ListForOwner filters by owner before paginating.
func (r *ItemRepo) ListForOwner(ctx context.Context, ownerID int64, skip, limit int) ([]entity.Item, error) {
	return r.store.ListBy(ctx, "owner_id", ownerID, skip, limit)
}

// CreateForOwner inserts in for ownerID. An unknown owner surfaces as
// store.ErrConstraintViolation.
func (r *ItemRepo) CreateForOwner(ctx context.Context, in entity.ItemCreate, ownerID int64) (*entity.Item, error) {
	in.OwnerID = ownerID
	return r.store.Create(ctx, in)
}
