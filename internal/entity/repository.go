package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/internal/connector"
)

var ErrUserNotFound = errors.New("user not found")

// Repository loads and stores users together with their addresses
type Repository struct {
	Engine *connector.Engine
	Logger *logrus.Logger
}

// NewRepository creates a new repository
func NewRepository(engine *connector.Engine, logger *logrus.Logger) *Repository {
	return &Repository{
		Engine: engine,
		Logger: logger,
	}
}

// SaveUsers inserts the users and their addresses in one transaction and
// assigns the generated ids.
func (r *Repository) SaveUsers(ctx context.Context, users []*User) error {
	insertUser := connector.Text("INSERT INTO user_account (name, fullname) VALUES (:name, :fullname)")
	insertAddress := connector.Text("INSERT INTO address (user_id, email_address) VALUES (:user_id, :email_address)")

	return r.Engine.Begin(ctx, func(conn *connector.Connection) error {
		for _, u := range users {
			var fullname interface{}
			if u.Fullname != nil {
				fullname = *u.Fullname
			}
			result, err := conn.Execute(ctx, insertUser, connector.Params{"name": u.Name, "fullname": fullname})
			if err != nil {
				return fmt.Errorf("insert user %s: %w", u.Name, err)
			}
			u.ID = result.LastInsertID()

			for _, a := range u.Addresses {
				a.User = u
				a.UserID = u.ID
				result, err := conn.Execute(ctx, insertAddress, connector.Params{"user_id": a.UserID, "email_address": a.EmailAddress})
				if err != nil {
					return fmt.Errorf("insert address %s: %w", a.EmailAddress, err)
				}
				a.ID = result.LastInsertID()
			}
		}
		r.Logger.Infof("Saved %d users", len(users))
		return nil
	})
}

// Users loads every user, ordered by id, with addresses attached on both sides
func (r *Repository) Users(ctx context.Context) ([]*User, error) {
	var users []*User
	err := r.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx, connector.Text("SELECT id, name, fullname FROM user_account ORDER BY id"))
		if err != nil {
			return err
		}
		users, err = scanUsers(result)
		if err != nil {
			return err
		}
		return r.attachAddresses(ctx, conn, users, connector.Text("SELECT id, user_id, email_address FROM address ORDER BY id"))
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UserByName loads a single user and its addresses
func (r *Repository) UserByName(ctx context.Context, name string) (*User, error) {
	var user *User
	err := r.Engine.Connect(ctx, func(conn *connector.Connection) error {
		result, err := conn.Execute(ctx,
			connector.Text("SELECT id, name, fullname FROM user_account WHERE name = :name ORDER BY id"),
			connector.Params{"name": name})
		if err != nil {
			return err
		}
		users, err := scanUsers(result)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, name)
		}
		user = users[0]
		return r.attachAddresses(ctx, conn, users[:1],
			connector.Text("SELECT id, user_id, email_address FROM address WHERE user_id = :user_id ORDER BY id"),
			connector.Params{"user_id": user.ID})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) attachAddresses(ctx context.Context, conn *connector.Connection, users []*User, query connector.TextClause, params ...connector.Params) error {
	byID := make(map[int64]*User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result, err := conn.Execute(ctx, query, params...)
	if err != nil {
		return err
	}

	for _, row := range result.All() {
		a := &Address{}
		if err := row.Scan(&a.ID, &a.UserID, &a.EmailAddress); err != nil {
			return err
		}
		u, ok := byID[a.UserID]
		if !ok {
			r.Logger.Warningf("Address %d references unknown user %d", a.ID, a.UserID)
			continue
		}
		a.User = u
		u.Addresses = append(u.Addresses, a)
	}
	return nil
}

func scanUsers(result *connector.Result) ([]*User, error) {
	var users []*User
	for _, row := range result.All() {
		u := &User{}
		var fullname interface{}
		if err := row.Scan(&u.ID, &u.Name, &fullname); err != nil {
			return nil, err
		}
		if s, ok := fullname.(string); ok {
			u.Fullname = &s
		}
		users = append(users, u)
	}
	return users, nil
}
