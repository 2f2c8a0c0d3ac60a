package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/caselight/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrEmptyValues      = errors.New("values cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateNamespace(ns service.Namespace) error {
	if !ns.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

func validateKeys(keys []string) error {
	for i, key := range keys {
		if err := validateString(key, fmt.Sprintf("keys[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
