package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrInvalidBackup = errors.New("backup is not valid JSON")
)

// Update is sent to listeners whenever a key is written.
type Update struct {
	Key   string
	Value []byte
}

// Store is a JSON document addressed by gjson style paths.
type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) ([]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
