// Package storage is the durable key-value boundary of songshelf.
//
// Values are JSON text stored under namespaced keys, the same shape a browser's
// local storage would hold. The Store type on top of a KV backend reads and
// writes whole collections; there are no partial or indexed updates.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Collection and slot names inside a namespace.
const (
	KeyUsers       = "users"
	KeySongs       = "songs"
	KeyCurrentUser = "currentUser"
)

var (
	// ErrStorageParse marks durable content that could not be decoded.
	ErrStorageParse = errors.New("storage content is not parsable")
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("storage backend is closed")
)

// KV is a flat string key-value namespace.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// ParseError reports a key whose content could not be decoded.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorageParse) true for every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrStorageParse }

// Key joins a namespace and a collection name.
func Key(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that kv is reachable. Backends without a Ping method are
// checked with a read.
func Ping(ctx context.Context, kv KV) error {
	if p, ok := kv.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, _, err := kv.Get(ctx, KeyCurrentUser)
	return err
}
