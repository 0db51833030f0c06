package entity

// User represents an account row in the `users` table.
// HashedPassword is never serialised.
type User struct {
	ID             int64  `db:"id" json:"id"`
	Username       string `db:"username" json:"username"`
	Email          string `db:"email" json:"email"`
	HashedPassword string `db:"hashed_password" json:"-"`
	IsActive       bool   `db:"is_active" json:"is_active"`
}

func (u User) Key() int64 { return u.ID }

// UserCreate is the registration input. Password is plaintext and is
// replaced by its hash before it reaches the store.
type UserCreate struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	HashedPassword string `json:"-"`
}

// Fields returns the insertable columns. The plaintext never appears here.
func (c UserCreate) Fields() map[string]any {
	return map[string]any{"username": c.Username, "email": c.Email, "hashed_password": c.HashedPassword}
}

// UserUpdate carries a partial update. Only non-nil fields are written.
type UserUpdate struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	Password       *string `json:"password,omitempty"`
	HashedPassword *string `json:"-"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

func (u UserUpdate) Fields() map[string]any {
	f := map[string]any{}
	if u.Username != nil {
		f["username"] = *u.Username
	}
	if u.Email != nil {
		f["email"] = *u.Email
	}
	if u.HashedPassword != nil {
		f["hashed_password"] = *u.HashedPassword
	}
	if u.IsActive != nil {
		f["is_active"] = *u.IsActive
	}
	return f
}
