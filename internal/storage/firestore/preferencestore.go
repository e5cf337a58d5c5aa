package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// PreferenceStore reads versioned per-service preference records. Records
// are keyed service-preferences/{fiscalCode}-{serviceId}-{version} so a
// settings change never rewrites the meaning of older records.
type PreferenceStore struct {
	client *firestore.Client
}

func NewPreferenceStore(client *firestore.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func (s *PreferenceStore) Get(ctx context.Context, fiscalCode, serviceID string, version int64) (*messaging.ServicePreference, error) {
	docID := preferenceDocID(fiscalCode, serviceID, version)
	doc, err := s.client.Collection("service-preferences").Doc(docID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore preference get failed: %w", err)
	}

	var pref messaging.ServicePreference
	if err := doc.DataTo(&pref); err != nil {
		return nil, fmt.Errorf("failed to decode preference %s: %w", docID, err)
	}
	return &pref, nil
}

func preferenceDocID(fiscalCode, serviceID string, version int64) string {
	return fmt.Sprintf("%s-%s-%d", fiscalCode, serviceID, version)
}
