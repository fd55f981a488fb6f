package models

import "time"

// User represents an account stored in the users table.
type User struct {
	ID           string   `db:"id" json:"id"`
	Name         string   `db:"name" json:"name"`
	Email        string   `db:"email" json:"email"`
	PasswordHash string   `db:"password_hash" json:"-"`
	Phone        string   `db:"phone" json:"phone,omitempty"`
	Role         UserRole `db:"role" json:"role"`
	UserProfile
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserProfile holds the role-specific profile fields.
type UserProfile struct {
	CommitteeName string `db:"committee_name" json:"committee_name,omitempty"`
	Department    string `db:"department" json:"department,omitempty"`
	IDProof       string `db:"id_proof" json:"id_proof,omitempty"`
	Course        string `db:"course" json:"course,omitempty"`
	Year          string `db:"year" json:"year,omitempty"`
}

// Principal returns the authorization view of the user.
func (u *User) Principal() *Principal {
	return &Principal{UserID: u.ID, Role: u.Role}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Bounds returns the effective page (from 1) and page size.
func (f UserFilter) Bounds() (page, size int) {
	page, size = f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
