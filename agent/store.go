package agent

import (
	"context"
	"errors"
)

var ErrNoSessionKey = errors.New("session key not found in context")

type sessionKeyContext struct{}

// WithSessionKey routes session reads and writes made with ctx to key.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

func SessionKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(sessionKeyContext{}).(string)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Store scopes a Cache to a namespace and resolves keys from the context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
}

func NewStore[S any](core Cache[S], namespace string) Store[S] {
	return Store[S]{core: core, namespace: namespace}
}

func (s Store[S]) key(ctx context.Context) (string, error) {
	key, ok := SessionKeyFromContext(ctx)
	if !ok {
		return "", ErrNoSessionKey
	}
	return s.namespace + ":" + key, nil
}

func (s Store[S]) Set(ctx context.Context, val S) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Set(ctx, key, val)
}

func (s Store[S]) Get(ctx context.Context) (S, bool, error) {
	key, err := s.key(ctx)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return s.core.Get(ctx, key)
}

func (s Store[S]) Del(ctx context.Context) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Del(ctx, key)
}
