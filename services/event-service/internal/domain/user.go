package domain

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

type User struct {
	ID    string
	Name  string
	Email string
}

// UserShort is the public projection of an initiator.
type UserShort struct {
	ID   string
	Name string
}

func (u *User) Short() UserShort { return UserShort{ID: u.ID, Name: u.Name} }

func NewUser(name, email string) (*User, error) {
	name, err := checkText("name", name, 2, 250)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) < 6 || len(email) > 254 {
		return nil, ErrValidation("email must be between 6 and 254 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrValidationMeta("email is malformed", map[string]string{"email": email})
	}
	return &User{ID: uuid.NewString(), Name: name, Email: email}, nil
}

type Category struct {
	ID   string
	Name string
}

func NewCategory(name string) (*Category, error) {
	name, err := checkText("name", name, 1, 50)
	if err != nil {
		return nil, err
	}
	return &Category{ID: uuid.NewString(), Name: name}, nil
}

func (c *Category) Rename(name string) error {
	name, err := checkText("name", name, 1, 50)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}
