package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chabbo/app/internal/corpus"
)

const (
	// DefaultDatabase is used when ConnectOptions.Database is empty.
	DefaultDatabase = "chabbo"

	defaultConnectTimeout = 10 * time.Second
)

// ConnectOptions configures the MongoDB-hosted backend.
type ConnectOptions struct {
	// ProjectKey is the MongoDB connection URI, credentials included.
	ProjectKey     string
	Database       string
	ConnectTimeout time.Duration
	Logger         *logrus.Logger
}

// Connect dials MongoDB and returns a backend whose base is the settings collection and whose
// drive is the corpus GridFS bucket. The returned func disconnects the client.
func Connect(ctx context.Context, opts ConnectOptions) (*Service, func(context.Context) error, error) {
	key := strings.TrimSpace(opts.ProjectKey)
	if key == "" {
		return nil, nil, corpus.ConfigurationFailure(nil, "remote project key is required")
	}

	database := strings.TrimSpace(opts.Database)
	if database == "" {
		database = DefaultDatabase
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	clientOptions := options.Client().
		ApplyURI(key).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, corpus.ConfigurationFailure(err, "connecting to remote store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, corpus.ConfigurationFailure(err, "pinging remote store")
	}

	db := client.Database(database)

	drive, err := NewMongoDrive(db, DriveName)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, corpus.ConfigurationFailure(err, "opening drive %s", DriveName)
	}

	svc, err := New(Options{
		Base:   NewMongoBase(db.Collection(BaseName)),
		Drive:  drive,
		Logger: opts.Logger,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return svc, client.Disconnect, nil
}

// MongoBase is a Base over a MongoDB collection, one document per key.
type MongoBase struct {
	collection *mongo.Collection
}

var _ Base = (*MongoBase)(nil)

type baseDocument struct {
	Key   string   `bson:"_id"`
	Value bson.Raw `bson:"value"`
}

// NewMongoBase wraps a collection as a Base.
func NewMongoBase(collection *mongo.Collection) *MongoBase {
	return &MongoBase{collection: collection}
}

// Get returns the value stored under key as relaxed extended JSON.
func (b *MongoBase) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var doc baseDocument
	err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, eris.Wrapf(ErrMissing, "base key %s", key)
		}
		return nil, eris.Wrapf(err, "fetching base key %s", key)
	}

	data, err := bson.MarshalExtJSON(doc.Value, false, false)
	if err != nil {
		return nil, eris.Wrapf(err, "converting base key %s to json", key)
	}
	return json.RawMessage(data), nil
}

// Put upserts every record, replacing whatever was stored under its key.
func (b *MongoBase) Put(ctx context.Context, records ...Record) error {
	for _, record := range records {
		var value bson.D
		if err := bson.UnmarshalExtJSON(record.Value, false, &value); err != nil {
			return eris.Wrapf(err, "converting record %s to bson", record.Key)
		}

		doc := bson.D{
			{Key: "_id", Value: record.Key},
			{Key: "value", Value: value},
		}
		filter := bson.M{"_id": record.Key}
		if _, err := b.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
			return eris.Wrapf(err, "writing record %s", record.Key)
		}
	}
	return nil
}

// MongoDrive is a Drive over a GridFS bucket. Uploading a name again replaces the earlier file.
type MongoDrive struct {
	bucket *gridfs.Bucket
}

var _ Drive = (*MongoDrive)(nil)

type driveFile struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"filename"`
}

// NewMongoDrive opens the GridFS bucket called name.
func NewMongoDrive(db *mongo.Database, name string) (*MongoDrive, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, eris.Wrapf(err, "opening gridfs bucket %s", name)
	}
	return &MongoDrive{bucket: bucket}, nil
}

// List responds with the distinct file names in the bucket, sorted.
func (d *MongoDrive) List(ctx context.Context) (json.RawMessage, error) {
	files, err := d.find(ctx, bson.D{})
	if err != nil {
		return nil, eris.Wrap(err, "listing gridfs files")
	}

	names := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if _, ok := seen[file.Name]; ok {
			continue
		}
		seen[file.Name] = struct{}{}
		names = append(names, file.Name)
	}

	return json.Marshal(map[string][]string{"names": names})
}

// Put uploads data under name, removes older revisions and echoes the stored name.
func (d *MongoDrive) Put(ctx context.Context, name string, data []byte) (json.RawMessage, error) {
	id, err := d.bucket.UploadFromStream(name, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "uploading gridfs file %s", name)
	}

	stale, err := d.find(ctx, bson.M{"filename": name, "_id": bson.M{"$ne": id}})
	if err != nil {
		return nil, eris.Wrapf(err, "finding older revisions of %s", name)
	}
	for _, file := range stale {
		if err := d.bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, eris.Wrapf(err, "removing older revision of %s", name)
		}
	}

	return json.Marshal(map[string]string{"name": name})
}

// Get downloads the latest revision of name.
func (d *MongoDrive) Get(_ context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.bucket.DownloadToStreamByName(name, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, eris.Wrapf(ErrMissing, "drive file %s", name)
		}
		return nil, eris.Wrapf(err, "downloading gridfs file %s", name)
	}
	return buf.Bytes(), nil
}

func (d *MongoDrive) find(ctx context.Context, filter any) ([]driveFile, error) {
	findOptions := options.GridFSFind().SetSort(bson.D{{Key: "filename", Value: 1}})
	cursor, err := d.bucket.Find(filter, findOptions)
	if err != nil {
		return nil, err
	}

	var files []driveFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}
