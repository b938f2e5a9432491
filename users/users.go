package users

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// User is the record persisted by the Record Store. ID is assigned by the store
// on insert; the remaining fields are opaque profile data.
type User struct {
	ID        int64     `json:"id" msgpack:"id" bun:"id,pk,autoincrement"`
	Username  string    `json:"username" msgpack:"username" bun:"username,notnull,unique"`
	Email     string    `json:"email" msgpack:"email" bun:"email"`
	Phone     string    `json:"phone" msgpack:"phone" bun:"phone"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Validate checks the profile fields a store requires before writing the record.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&u.Email, validation.Length(0, 255)),
		validation.Field(&u.Phone, validation.Length(0, 32)),
	)
}

// Clone returns a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// CloneAll copies list and every record in it. A nil list stays nil.
func CloneAll(list []*User) []*User {
	if list == nil {
		return nil
	}
	out := make([]*User, len(list))
	for i, u := range list {
		out[i] = u.Clone()
	}
	return out
}

// Store is the durable Record Store the cached service delegates to.
// Lookups report an absent record as a nil *User with a nil error.
type Store interface {
	SelectByPrimaryKey(ctx context.Context, id int64) (*User, error)
	SelectAll(ctx context.Context) ([]*User, error)
	// Insert persists the user and fills in the assigned ID.
	Insert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) (int64, error)
	Update(ctx context.Context, user *User) (int64, error)
	Find(ctx context.Context, keyword string) ([]*User, error)
	SelectIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

// Service is the data-access contract exposed to callers such as HTTP controllers.
type Service interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetAllUsers(ctx context.Context) ([]*User, error)
	InsertUser(ctx context.Context, user *User) (*User, error)
	DeleteUser(ctx context.Context, id int64) (int64, error)
	EditUser(ctx context.Context, user *User) (int64, error)
	FindUsers(ctx context.Context, keyword string) ([]*User, error)
	SelectNowIDs(ctx context.Context) ([]int64, error)
	SelectUsersCount(ctx context.Context) (int64, error)
}
