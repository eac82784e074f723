package service

import "errors"

// Lifecycle and storage errors surfaced to API handlers. Each guard failure
// maps to a distinct error so the client can render distinct messaging.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidState      = errors.New("operation not allowed in current state")
	ErrAlreadyAnalyzed   = errors.New("assessment already analyzed")
	ErrAlreadyGenerated  = errors.New("report already generated")
	ErrAlreadyDownloaded = errors.New("report already downloaded")
	ErrExpired           = errors.New("report expired and deleted")
	ErrStorage           = errors.New("storage failure")
	ErrUpstream          = errors.New("upstream provider failure")
)
