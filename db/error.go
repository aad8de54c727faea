package db

// Description: Define error types for db package.

import "errors"

var (
	ErrEmptyConnectionString = errors.New("empty mongodb connection string")
)
