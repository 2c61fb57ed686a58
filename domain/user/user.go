// Package user contains the demo backend's user record and the resource
// description that admin configurations use for it.
package user

import (
	"errors"
	"strings"

	"github.com/artpar/adminkit/core/resource"
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Errors.
var (
	ErrNotFound = errors.New("user not found")
)

// User is a demo backend user.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// WithDefaults returns u with an empty role set to RoleUser.
func (u User) WithDefaults() User {
	if strings.TrimSpace(u.Role) == "" {
		u.Role = RoleUser
	}
	return u
}

// ListQuery selects one page of users.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Order  string
	Search string
	Role   string
}

// Sortable columns. Anything else sorts by created_at.
var sortable = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"role":       true,
	"created_at": true,
}

// SortColumn returns the validated sort column and direction.
// The default is newest first.
func (q ListQuery) SortColumn() (column, direction string) {
	column = "created_at"
	direction = "DESC"
	if sortable[q.Sort] {
		column = q.Sort
		direction = "ASC"
	}
	switch strings.ToLower(q.Order) {
	case "asc":
		direction = "ASC"
	case "desc":
		direction = "DESC"
	}
	return column, direction
}

// Offset returns the row offset for the page, or 0 when paging is off.
func (q ListQuery) Offset() int {
	if q.Page < 2 || q.Limit < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Fields is the form the demo backend validates writes against.
var Fields = []resource.Field{
	{Key: "id", Label: "ID", Type: resource.FieldNumber, Readonly: true},
	{Key: "name", Label: "Name", Type: resource.FieldText, Required: true},
	{Key: "email", Label: "Email", Type: resource.FieldEmail, Required: true},
	{Key: "role", Label: "Role", Type: resource.FieldSelect, Options: []string{RoleAdmin, RoleUser}},
	{Key: "created_at", Label: "Created At", Type: resource.FieldDatetime, Readonly: true},
}

// Resource returns a description of the demo users resource served under base.
func Resource(base string) resource.Resource {
	return resource.Resource{
		Name:     "users",
		Endpoint: strings.TrimRight(base, "/") + "/users",
		Filters: []resource.Filter{
			{Key: "role", Type: resource.FilterSelect, Options: []string{RoleAdmin, RoleUser}},
		},
		Table: resource.Table{Columns: []resource.Column{
			{Key: "name", Label: "Name", Sortable: true},
			{Key: "email", Label: "Email"},
			{Key: "role", Label: "Role", Type: resource.ColumnBadge},
			{Key: "created_at", Label: "Created At", Type: resource.ColumnDate, Sortable: true},
		}},
		Form: resource.Form{Fields: Fields},
		Messages: map[int]string{
			404: "User not found",
		},
	}
}
