package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dgellow/login-front/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps attempts in Google Cloud Firestore, one document per
// attempt keyed by attempt id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

var _ AttemptStore = (*FirestoreStore)(nil)

// AttemptDoc represents an attempt document in Firestore
type AttemptDoc struct {
	AppID     string    `firestore:"app_id"`
	PageQuery string    `firestore:"page_query,omitempty"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

func (d AttemptDoc) toAttempt(id string) Attempt {
	return Attempt{
		ID:        id,
		AppID:     d.AppID,
		PageQuery: d.PageQuery,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}
}

// NewFirestoreStore creates a new Firestore attempt store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error

	// Firestore client with custom database
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Using Firestore attempt store", map[string]any{
		"project":    projectID,
		"database":   database,
		"collection": collection,
	})

	return &FirestoreStore{client: client, collection: collection, now: time.Now}, nil
}

func (s *FirestoreStore) Put(ctx context.Context, attempt Attempt) error {
	doc := AttemptDoc{
		AppID:     attempt.AppID,
		PageQuery: attempt.PageQuery,
		CreatedAt: attempt.CreatedAt,
		ExpiresAt: attempt.ExpiresAt,
	}
	_, err := s.client.Collection(s.collection).Doc(attempt.ID).Create(ctx, doc)
	if status.Code(err) == codes.AlreadyExists {
		return ErrAttemptExists
	}
	if err != nil {
		return fmt.Errorf("failed to store attempt in Firestore: %w", err)
	}
	return nil
}

// Take reads and deletes the attempt in one transaction
func (s *FirestoreStore) Take(ctx context.Context, id string) (Attempt, error) {
	ref := s.client.Collection(s.collection).Doc(id)

	var attempt Attempt
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		var doc AttemptDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to unmarshal attempt: %w", err)
		}
		attempt = doc.toAttempt(id)

		return tx.Delete(ref)
	})
	if errors.Is(err, ErrAttemptNotFound) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}

	if attempt.Expired(s.now()) {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *FirestoreStore) CleanupExpired(ctx context.Context) (int, error) {
	iter := s.client.Collection(s.collection).Where("expires_at", "<=", s.now()).Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("error iterating Firestore documents: %w", err)
		}

		if _, err := doc.Ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			log.LogError("Failed to delete expired attempt %s: %v", doc.Ref.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close closes the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
