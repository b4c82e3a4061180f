package domain

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists
	// (e.g. a second review for the same user/product pair)
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrProductInUse is returned when deleting a product that is still
	// referenced by an order
	ErrProductInUse = errors.New("product is in use")

	// ErrInsufficientStock is returned when a delivery would drive stock
	// below zero
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotImplemented is returned by operations that are deliberately
	// left unimplemented
	ErrNotImplemented = errors.New("not implemented")
)
