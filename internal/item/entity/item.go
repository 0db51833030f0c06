package entity

// Item is a row in the `items` table, owned by exactly one user.
type Item struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
	OwnerID     int64   `db:"owner_id" json:"owner_id"`
}

func (i Item) Key() int64 { return i.ID }

// ItemCreate is the creation input. OwnerID is set by the repository, never
// taken from the request body.
type ItemCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	OwnerID     int64   `json:"-"`
}

func (c ItemCreate) Fields() map[string]any {
	return map[string]any{"name": c.Name, "description": c.Description, "owner_id": c.OwnerID}
}

type ItemUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (u ItemUpdate) Fields() map[string]any {
	f := map[string]any{}
	if u.Name != nil {
		f["name"] = *u.Name
	}
	if u.Description != nil {
		f["description"] = *u.Description
	}
	return f
}
