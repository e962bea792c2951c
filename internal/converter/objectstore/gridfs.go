package objectstore

import (
	"context"
	"converter/pkg/logger"
	"converter/pkg/model"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// databaseName is the Mongo database backing both GridFS buckets.
const databaseName = "converter"

// gridfsFile mirrors the fs.files document shape GridFS writes.
type gridfsFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Length   int64              `bson:"length"`
	Filename string             `bson:"filename"`
	Metadata bson.M             `bson:"metadata"`
}

// Service is a GridFS-backed Store, with one bucket per spec.md §4.4 kind.
type Service struct {
	client *mongo.Client
	log    *logger.Log

	buckets map[string]*gridfs.Bucket
}

// New connects to Mongo and opens the "ubls" and "xslts" GridFS buckets.
func New(ctx context.Context, cfg *model.Cfg, log *logger.Log) (*Service, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Common.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("objectstore: connect: %w", err)
	}

	db := client.Database(databaseName)

	s := &Service{
		client:  client,
		log:     log,
		buckets: make(map[string]*gridfs.Bucket, 2),
	}

	for _, name := range []string{BucketUBLs, BucketXSLTs} {
		bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
		if err != nil {
			return nil, fmt.Errorf("objectstore: open bucket %q: %w", name, err)
		}
		s.buckets[name] = bucket
	}

	s.log.Info("Started")
	return s, nil
}

// Close disconnects the underlying Mongo client.
func (s *Service) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping reports whether the underlying Mongo connection is healthy.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Service) bucket(name string) (*gridfs.Bucket, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, fmt.Errorf("objectstore: unknown bucket %q", name)
	}
	return b, nil
}

// Exists reports whether at least one object matches (filename=key, year).
func (s *Service) Exists(ctx context.Context, bucketName, key, year string) (bool, error) {
	bucket, err := s.bucket(bucketName)
	if err != nil {
		return false, err
	}

	count, err := bucket.GetFilesCollection().CountDocuments(ctx, filenameYearFilter(key, year))
	if err != nil {
		return false, fmt.Errorf("objectstore: exists: %w", err)
	}
	return count > 0, nil
}

// Get fetches the single object matching (filename=key, year), returning
// ErrNotFound, ErrMultiple, or ErrMissingField as appropriate.
func (s *Service) Get(ctx context.Context, bucketName, key, year string) (*StoreRecord, error) {
	bucket, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}

	cursor, err := bucket.GetFilesCollection().Find(ctx, filenameYearFilter(key, year))
	if err != nil {
		return nil, fmt.Errorf("objectstore: get: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridfsFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("objectstore: get: decode: %w", err)
	}

	if len(files) == 0 {
		return nil, ErrNotFound
	}
	if len(files) > 1 {
		return nil, ErrMultiple
	}
	file := files[0]

	originalSize, ok := file.Metadata["original_size"]
	if !ok {
		return nil, ErrMissingField
	}
	originalSizeInt, err := toInt64(originalSize)
	if err != nil {
		return nil, fmt.Errorf("%w: original_size: %v", ErrMissingField, err)
	}

	stream, err := bucket.OpenDownloadStream(file.ID)
	if err != nil {
		return nil, fmt.Errorf("objectstore: open download stream: %w", err)
	}
	defer stream.Close()

	content, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read: %w", err)
	}

	return &StoreRecord{
		Content:        content,
		OriginalSize:   originalSizeInt,
		CompressedSize: file.Length,
	}, nil
}

func filenameYearFilter(key, year string) bson.M {
	return bson.M{"filename": key, "metadata.year": year}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, errors.New("unsupported numeric type")
	}
}
