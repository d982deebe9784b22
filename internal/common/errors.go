// Package common defines shared constants and sentinel errors used across
// the allocation core and persistence layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Allocation store rejections (checked outcomes, not failures).
	ErrorDuplicateTarget    = errors.New("target already allocated")
	ErrorMaxItems           = errors.New("allocation limit reached")
	ErrorAllLocked          = errors.New("cannot lock every item")
	ErrorCannotRedistribute = errors.New("cannot redistribute, unlock at least one item")

	// Suggestion lifecycle errors.
	ErrorNoPendingSuggestion = errors.New("no pending suggestion")

	// Draft field validation.
	ErrorInvalidFrequency = errors.New("unknown donation frequency")
)
