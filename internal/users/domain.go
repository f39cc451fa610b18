package users

import "time"

// UserType classifies accounts; fine eligibility can be filtered by it.
type UserType string

// Known user types.
const (
	TypeMember      UserType = "MEMBER"
	TypeOrgan       UserType = "ORGAN"
	TypeVoucher     UserType = "VOUCHER"
	TypeLocalUser   UserType = "LOCAL_USER"
	TypeLocalAdmin  UserType = "LOCAL_ADMIN"
	TypeInvoice     UserType = "INVOICE"
	TypePointOfSale UserType = "POINT_OF_SALE"
)

// AllTypes lists every known user type.
func AllTypes() []UserType {
	return []UserType{
		TypeMember, TypeOrgan, TypeVoucher, TypeLocalUser,
		TypeLocalAdmin, TypeInvoice, TypePointOfSale,
	}
}

// Valid reports whether t names a known user type.
func (t UserType) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// User represents an account participating in transactions and transfers.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Type      UserType
	Active    bool
	Deleted   bool
	OrganID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows user listings.
type Filter struct {
	FirstName string
	LastName  string
	Active    *bool
	Deleted   *bool
	Type      UserType
}

// CreateUserInput carries fields for account creation.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Type      UserType
	OrganID   int64
}

// UpdateUserInput carries the mutable account fields.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Active    *bool
}
