package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

// progressCollection holds one document per scope with one string field per key.
const progressCollection = "challenge_progress"

type firestoreBackend struct {
	client *firestore.Client
}

// NewFirestore returns a backend storing progress documents in Firestore.
// Closing the backend closes the client.
func NewFirestore(client *firestore.Client) Backend {
	return &firestoreBackend{client: client}
}

func (b *firestoreBackend) Store(scope string) challenge.Store {
	return scoped{scope: scope, backend: b}
}

func (b *firestoreBackend) Ping(ctx context.Context) error {
	iter := b.client.Collection(progressCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func (b *firestoreBackend) Close() error {
	return b.client.Close()
}

func (b *firestoreBackend) load(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScopeKey(scope, key); err != nil {
		return "", false, err
	}

	doc, err := b.client.Collection(progressCollection).Doc(scope).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	raw, err := doc.DataAt(key)
	if err != nil {
		// DataAt fails when the field is absent.
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("progress field %s has type %T", key, raw)
	}
	return value, true, nil
}

func (b *firestoreBackend) save(ctx context.Context, scope, key, value string) error {
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}

	_, err := b.client.Collection(progressCollection).Doc(scope).Set(ctx, map[string]any{
		key:          value,
		"updated_at": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}
