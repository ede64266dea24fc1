// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pagetree

import (
	"errors"
	"fmt"
)

var (
	ErrPageNotFound        = errors.New("pagetree: page not found")
	ErrParentNotFound      = errors.New("pagetree: parent page not found")
	ErrParentCycle         = errors.New("pagetree: parent assignment creates hierarchy cycle")
	ErrPathConflict        = errors.New("pagetree: full path already in use")
	ErrHasChildren         = errors.New("pagetree: page has children")
	ErrTitleRequired       = errors.New("pagetree: title is required")
	ErrSlugRequired        = errors.New("pagetree: slug is required")
	ErrUnknownLocale       = errors.New("pagetree: unknown locale")
	ErrInvalidOrderPayload = errors.New("pagetree: invalid order payload")
	ErrPartialPathUpdate   = errors.New("pagetree: full path update partially failed")
)

// OrderPayloadError describes why a reorder payload was rejected. It is
// returned before any write happens.
type OrderPayloadError struct {
	Reason string
	Err    error
}

func (e *OrderPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidOrderPayload, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidOrderPayload, e.Reason)
}

func (e *OrderPayloadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidOrderPayload, e.Err}
	}
	return []error{ErrInvalidOrderPayload}
}

// BatchError reports how many full path writes of a batch failed. It does
// not say which ones; those are logged individually.
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d of %d updates failed", ErrPartialPathUpdate, e.Failed, e.Total)
}

func (e *BatchError) Unwrap() error {
	return ErrPartialPathUpdate
}
