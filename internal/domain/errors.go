package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrSerializationFailure marks a transaction aborted by the database
// because it conflicted with a concurrent booking attempt. The engine
// retries the full check-and-write once before giving up.
var ErrSerializationFailure = errors.New("serialization failure")

type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Entity, e.Key)
}

type DuplicateKeyError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already exists with %s: %s", e.Entity, e.Field, e.Value)
}

type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return e.Reason
}

type NotAvailableError struct {
	RoomNumber string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("room %s is not available from %s to %s",
		e.RoomNumber, e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"))
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsDuplicateKey(err error) bool {
	var e *DuplicateKeyError
	return errors.As(err, &e)
}

func IsInvalidOperation(err error) bool {
	var e *InvalidOperationError
	return errors.As(err, &e)
}

func IsNotAvailable(err error) bool {
	var e *NotAvailableError
	return errors.As(err, &e)
}
