// Package firestore implements the pipeline's storage capabilities on
// Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// ProfileStore reads recipient profiles. Profiles are append-only:
// profiles/{fiscalCode}/versions/{version}, and the pipeline always reads
// the highest version.
type ProfileStore struct {
	client *firestore.Client
}

func NewProfileStore(client *firestore.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Latest(ctx context.Context, fiscalCode string) (*messaging.Profile, error) {
	iter := s.client.Collection("profiles").
		Doc(fiscalCode).
		Collection("versions").
		OrderBy("version", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore profile query failed: %w", err)
	}

	var profile messaging.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", fiscalCode, err)
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = doc.UpdateTime
	}
	return &profile, nil
}
