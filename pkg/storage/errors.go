package storage

import (
	"errors"
)

var (
	// ErrCollision if a document already exists under one of the ids being written.
	ErrCollision = errors.New("document already exists")

	// ErrTransactionalWriteFailed if two transactions attempt to change the same documents
	// at the same time.
	ErrTransactionalWriteFailed = errors.New("transactional write failed due to conflict")

	ErrNotFound = errors.New("not found")
)
