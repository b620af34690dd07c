package domain

import (
	"context"
	"strings"
)

type User struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type UserRepository interface {
	GetById(ctx context.Context, id int) (*User, error)
}
