package domain

import "github.com/google/uuid"

// Guest is a contact record. AccountID is a weak reference to an
// identity-provider account; it is stored but never dereferenced here.
type Guest struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Address     string
	AccountID   *uuid.UUID
}

func (g *Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}
