package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrPayloadShape means the source response no longer matches the expected
	// schema: missing markers, missing keys, unparseable dates or prices.
	ErrPayloadShape = errors.New("unexpected payload shape")

	ErrMalformedAddress  = errors.New("malformed address")
	ErrOrphanTransaction = errors.New("transaction has no parent property")
)
