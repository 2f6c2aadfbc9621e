package diagram

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// DefaultFile is the snapshot file name used when none is configured.
const DefaultFile = "diagram-data.json"

// Persister saves and restores whole diagrams.
type Persister interface {
	// Load returns the saved diagram, or an empty one if nothing was saved.
	Load(ctx context.Context) (Diagram, error)
	Save(ctx context.Context, d Diagram) error
	Close() error
}

// ===== File =====

// FileStore persists a diagram as an indented JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file persister. An empty path means DefaultFile in
// the working directory.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (Diagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return Diagram{}, xerrors.Wrap(xerrors.ErrCodeStorage, err, "read diagram file")
	}

	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return Diagram{}, xerrors.Wrap(xerrors.ErrCodeParse, err, "parse diagram file %s", s.path)
	}
	d.normalize()
	return d, nil
}

// Save writes d to a temporary file and renames it over the snapshot, so a
// crash never leaves a truncated file behind.
func (s *FileStore) Save(ctx context.Context, d Diagram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.normalize()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInternal, err, "marshal diagram")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "create diagram dir")
	}
	tmp, err := os.CreateTemp(dir, ".diagram-*.json")
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "write diagram file")
	}
	if err := tmp.Close(); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "write diagram file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "replace diagram file")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

var _ Persister = (*FileStore)(nil)

// ===== MongoDB =====

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string // default "xwire"
	Collection string // default "diagrams"
	Name       string // document key, default "default"
	Timeout    time.Duration
}

// MongoStore persists a diagram as one document in a MongoDB collection,
// keyed by diagram name.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	name    string
	timeout time.Duration
}

type mongoDoc struct {
	Name      string    `bson:"_id"`
	Diagram   Diagram   `bson:"diagram"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, xerrors.New(xerrors.ErrCodeInvalidInput, "mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = "xwire"
	}
	if cfg.Collection == "" {
		cfg.Collection = "diagrams"
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeStorage, err, "connect to mongo")
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, xerrors.Wrap(xerrors.ErrCodeStorage, err, "ping mongo")
	}

	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		name:    cfg.Name,
		timeout: cfg.Timeout,
	}, nil
}

func (s *MongoStore) Load(ctx context.Context) (Diagram, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": s.name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Empty(), nil
	}
	if err != nil {
		return Diagram{}, xerrors.Wrap(xerrors.ErrCodeStorage, err, "load diagram %s", s.name)
	}
	doc.Diagram.normalize()
	return doc.Diagram, nil
}

func (s *MongoStore) Save(ctx context.Context, d Diagram) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d.normalize()
	doc := mongoDoc{Name: s.name, Diagram: d, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": s.name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return xerrors.Wrap(xerrors.ErrCodeStorage, err, "save diagram %s", s.name)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Persister = (*MongoStore)(nil)
