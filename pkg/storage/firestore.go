package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

const (
	collectionConfig     = "config"
	collectionReadings   = "readings"
	collectionAdvisories = "advisories"
	collectionFeedback   = "feedback"
)

// FirestoreProvider implements Database using Google Cloud Firestore. Every
// record is a JSON blob in a sub-collection of households/{householdID}.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	if f.projectID == "" && os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		return fmt.Errorf("firestore-project-id is required with the emulator")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(householdID, name string) (*firestore.CollectionRef, error) {
	if householdID == "" {
		return nil, ErrEmptyHouseholdID
	}
	return f.client.Collection("households").Doc(householdID).Collection(name), nil
}

// decodeDoc unmarshals the "json" field of doc into v.
func decodeDoc(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// decodeAll drains iter, decoding each document with decodeDoc.
func decodeAll[T any](ctx context.Context, iter *firestore.DocumentIterator) ([]T, error) {
	defer iter.Stop()
	var out []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating documents: %w", err)
		}
		var v T
		if err := decodeDoc(ctx, doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// setJSON stores v as a JSON blob alongside its timestamp.
func setJSON(ctx context.Context, ref *firestore.DocumentRef, v any, ts time.Time, extra map[string]interface{}) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ref.Parent.ID, err)
	}
	data := map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": ts,
	}
	for k, val := range extra {
		data[k] = val
	}
	if _, err := ref.Set(ctx, data); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", ref.Parent.ID, ref.ID, err)
	}
	return nil
}

// rangeQuery selects documents whose RFC3339 id falls in [start, end).
func rangeQuery(coll *firestore.CollectionRef, start, end time.Time, dir firestore.Direction) firestore.Query {
	return coll.
		Where(firestore.DocumentID, ">=", coll.Doc(docID(start))).
		Where(firestore.DocumentID, "<", coll.Doc(docID(end))).
		OrderBy(firestore.DocumentID, dir)
}

// GetSettings retrieves the household settings from the "config/settings"
// document. Missing settings return the zero value at version 0.
func (f *FirestoreProvider) GetSettings(ctx context.Context, householdID string) (types.Settings, int, error) {
	coll, err := f.collection(householdID, collectionConfig)
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var s types.Settings
	if err := decodeDoc(ctx, doc, &s); err != nil {
		return types.Settings{}, 0, err
	}
	return s, version, nil
}

// SetSettings saves the household settings to the "config/settings" document.
func (f *FirestoreProvider) SetSettings(ctx context.Context, householdID string, settings types.Settings, version int) error {
	coll, err := f.collection(householdID, collectionConfig)
	if err != nil {
		return err
	}
	return setJSON(ctx, coll.Doc("settings"), settings, time.Now(), map[string]interface{}{
		"version": version,
	})
}

// InsertReading stores a sensor reading keyed by its timestamp.
func (f *FirestoreProvider) InsertReading(ctx context.Context, householdID string, reading types.Reading) error {
	if reading.Timestamp.IsZero() {
		return fmt.Errorf("reading missing timestamp")
	}
	coll, err := f.collection(householdID, collectionReadings)
	if err != nil {
		return err
	}
	return setJSON(ctx, coll.Doc(docID(reading.Timestamp)), reading, reading.Timestamp, map[string]interface{}{
		"version": types.CurrentReadingVersion,
	})
}

// GetReadings returns the readings in [start, end), oldest first.
func (f *FirestoreProvider) GetReadings(ctx context.Context, householdID string, start, end time.Time) ([]types.Reading, error) {
	coll, err := f.collection(householdID, collectionReadings)
	if err != nil {
		return nil, err
	}
	return decodeAll[types.Reading](ctx, rangeQuery(coll, start, end, firestore.Asc).Documents(ctx))
}

// InsertAdvisory stores an advisory keyed by its timestamp.
func (f *FirestoreProvider) InsertAdvisory(ctx context.Context, householdID string, advisory types.Advisory) error {
	if advisory.Timestamp.IsZero() {
		return fmt.Errorf("advisory missing timestamp")
	}
	coll, err := f.collection(householdID, collectionAdvisories)
	if err != nil {
		return err
	}
	return setJSON(ctx, coll.Doc(docID(advisory.Timestamp)), advisory, advisory.Timestamp, map[string]interface{}{
		"id":       advisory.ID,
		"decision": string(advisory.Result.Decision),
		"version":  types.CurrentAdvisoryVersion,
	})
}

// GetAdvisories returns advisories in [start, end), newest first.
func (f *FirestoreProvider) GetAdvisories(ctx context.Context, householdID string, start, end time.Time, limit int) ([]types.Advisory, error) {
	coll, err := f.collection(householdID, collectionAdvisories)
	if err != nil {
		return nil, err
	}
	q := rangeQuery(coll, start, end, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return decodeAll[types.Advisory](ctx, q.Documents(ctx))
}

// GetLatestAdvisory returns the newest advisory or nil.
func (f *FirestoreProvider) GetLatestAdvisory(ctx context.Context, householdID string) (*types.Advisory, error) {
	coll, err := f.collection(householdID, collectionAdvisories)
	if err != nil {
		return nil, err
	}
	advisories, err := decodeAll[types.Advisory](ctx, coll.OrderBy(firestore.DocumentID, firestore.Desc).Limit(1).Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest advisory: %w", err)
	}
	if len(advisories) == 0 {
		return nil, nil
	}
	return &advisories[0], nil
}

// InsertFeedback stores feedback under its household keyed by id.
func (f *FirestoreProvider) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	if feedback.ID == "" {
		return fmt.Errorf("feedback missing id")
	}
	coll, err := f.collection(feedback.HouseholdID, collectionFeedback)
	if err != nil {
		return err
	}
	return setJSON(ctx, coll.Doc(feedback.ID), feedback, feedback.Timestamp, nil)
}

// ListFeedback returns the newest feedback first.
func (f *FirestoreProvider) ListFeedback(ctx context.Context, householdID string, limit int) ([]types.Feedback, error) {
	coll, err := f.collection(householdID, collectionFeedback)
	if err != nil {
		return nil, err
	}
	q := coll.OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return decodeAll[types.Feedback](ctx, q.Documents(ctx))
}
