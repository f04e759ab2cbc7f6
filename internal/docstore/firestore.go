package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mx32-chat/backend/pkg/logger"
)

// Firestore implements Store against Google Cloud Firestore, the
// database holding the state, parameter, analysis-text and metric-api
// catalogs.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	logger.Info("Firestore client initialized", zap.String("project", projectID))

	return &Firestore{client: client}, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	iter := f.client.Collection(collection).Where(field, "==", value).Limit(limit).Documents(ctx)
	return collect(iter)
}

func (f *Firestore) GetByID(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch %s/%s: %w", collection, id, err)
	}

	return Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (f *Firestore) QueryByComposite(ctx context.Context, collection, field1 string, value1 any, field2 string, value2 any, limit int) ([]Document, error) {
	iter := f.client.Collection(collection).
		Where(field1, "==", value1).
		Where(field2, "==", value2).
		Limit(limit).
		Documents(ctx)
	return collect(iter)
}

func (f *Firestore) All(ctx context.Context, collection string) ([]Document, error) {
	iter := f.client.Collection(collection).Documents(ctx)
	return collect(iter)
}

func collect(iter *firestore.DocumentIterator) ([]Document, error) {
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents: %w", err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}

	return docs, nil
}
