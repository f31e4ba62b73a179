package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password, so a caller cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

func NewError(model string, err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(model), err)
}
