package entity

import (
	"fmt"

	"github.com/vitebski/sqltour/internal/catalog"
	"github.com/vitebski/sqltour/pkg/models"
)

const (
	UserTable    = "user_account"
	AddressTable = "address"
)

// User is a row of user_account with its addresses
type User struct {
	ID        int64
	Name      string
	Fullname  *string
	Addresses []*Address
}

// Address is a row of address, pointing back at its user
type Address struct {
	ID           int64
	EmailAddress string
	UserID       int64
	User         *User
}

// AddAddress attaches an address to the user on both sides of the relationship
func (u *User) AddAddress(a *Address) {
	a.User = u
	a.UserID = u.ID
	u.Addresses = append(u.Addresses, a)
}

func (u *User) String() string {
	fullname := "NULL"
	if u.Fullname != nil {
		fullname = fmt.Sprintf("%q", *u.Fullname)
	}
	return fmt.Sprintf("User(id=%d, name=%q, fullname=%s)", u.ID, u.Name, fullname)
}

func (a *Address) String() string {
	return fmt.Sprintf("Address(id=%d, email_address=%q)", a.ID, a.EmailAddress)
}

// UserColumns declares the user_account table
func UserColumns() []models.Column {
	return []models.Column{
		models.NewColumn("id", models.Integer(), models.PrimaryKey()),
		models.NewColumn("name", models.String(30), models.NotNull()),
		models.NewColumn("fullname", models.String()),
	}
}

// AddressColumns declares the address table
func AddressColumns() []models.Column {
	return []models.Column{
		models.NewColumn("id", models.Integer(), models.PrimaryKey()),
		models.NewColumn("user_id", models.Integer(), models.ForeignKey(UserTable, "id"), models.NotNull()),
		models.NewColumn("email_address", models.String(), models.NotNull()),
	}
}

// Declare registers the user_account and address tables in the catalog
func Declare(cat *catalog.Catalog) error {
	if _, err := cat.RegisterTable(UserTable, UserColumns()); err != nil {
		return err
	}
	if _, err := cat.RegisterTable(AddressTable, AddressColumns()); err != nil {
		return err
	}
	return cat.Validate()
}

// SampleUsers returns a small set of users with addresses, ids not yet assigned
func SampleUsers() []*User {
	fullname := func(s string) *string { return &s }

	spongebob := &User{Name: "spongebob", Fullname: fullname("Spongebob Squarepants")}
	spongebob.AddAddress(&Address{EmailAddress: "spongebob@sqltour.dev"})

	sandy := &User{Name: "sandy", Fullname: fullname("Sandy Cheeks")}
	sandy.AddAddress(&Address{EmailAddress: "sandy@sqltour.dev"})
	sandy.AddAddress(&Address{EmailAddress: "sandy@squirrelpower.org"})

	patrick := &User{Name: "patrick"}

	return []*User{spongebob, sandy, patrick}
}
