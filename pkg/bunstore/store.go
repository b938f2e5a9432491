package bunstore

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-user-cache/users"
	"github.com/uptrace/bun"
)

var _ users.Store = (*Store)(nil)

// Store is a users.Store backed by bun. Every call runs in its own transaction.
type Store struct {
	db *bun.DB
}

// New returns a Store using db.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the users table when it does not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*users.User)(nil)).
		IfNotExists().
		Exec(ctx)
	return translateError(err, "create schema")
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, nil, fn)
}

// SelectByPrimaryKey returns nil, nil when no user has the given id.
func (s *Store) SelectByPrimaryKey(ctx context.Context, id int64) (*users.User, error) {
	user := new(users.User)
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err, "select user")
	}
	return user, nil
}

// SelectAll returns every user ordered by id.
func (s *Store) SelectAll(ctx context.Context) ([]*users.User, error) {
	var records []*users.User
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&records).Order("id ASC").Scan(ctx)
	})
	if err != nil {
		return nil, translateError(err, "select users")
	}
	return records, nil
}

// Insert stores user and fills in the generated ID.
func (s *Store) Insert(ctx context.Context, user *users.User) error {
	if user == nil {
		return goerrors.New("bunstore: insert: user is nil", goerrors.CategoryBadInput)
	}
	if err := user.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "bunstore: invalid user")
	}

	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(user).Exec(ctx)
		return err
	})
	return translateError(err, "insert user")
}

// Delete removes the user and reports how many rows were deleted.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*users.User)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, translateError(err, "delete user")
	}
	return affected, nil
}

// Update writes the profile fields of user and reports how many rows changed.
func (s *Store) Update(ctx context.Context, user *users.User) (int64, error) {
	if user == nil {
		return 0, goerrors.New("bunstore: update: user is nil", goerrors.CategoryBadInput)
	}
	if err := user.Validate(); err != nil {
		return 0, goerrors.FromOzzoValidation(err, "bunstore: invalid user")
	}

	var affected int64
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(user).
			Column("username", "email", "phone").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, translateError(err, "update user")
	}
	return affected, nil
}

// Find returns users whose username, email or phone contains keyword.
// An empty keyword matches every user.
func (s *Store) Find(ctx context.Context, keyword string) ([]*users.User, error) {
	pattern := "%" + keyword + "%"

	var records []*users.User
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&records).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("username LIKE ?", pattern).
					WhereOr("email LIKE ?", pattern).
					WhereOr("phone LIKE ?", pattern)
			}).
			Order("id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, translateError(err, "find users")
	}
	return records, nil
}

// SelectIDs returns the id of every user in ascending order.
func (s *Store) SelectIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model((*users.User)(nil)).
			Column("id").
			Order("id ASC").
			Scan(ctx, &ids)
	})
	if err != nil {
		return nil, translateError(err, "select ids")
	}
	return ids, nil
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int
	err := s.inTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		count, err = tx.NewSelect().Model((*users.User)(nil)).Count(ctx)
		return err
	})
	if err != nil {
		return 0, translateError(err, "count users")
	}
	return int64(count), nil
}
