package diagram

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	p := NewFileStore(filepath.Join(t.TempDir(), "diagram.json"))

	d, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, d.NodeCount())
	assert.NotNil(t, d.Controllers)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "diagram.json")
	p := NewFileStore(path)

	s := NewStore()
	c := s.AddController(NewController())
	r := s.AddReceiver(NewReceiver())
	s.AddWire(Wire{Color: WireNetwork, From: Endpoint{NodeID: c.ID, PortID: "p1"}, To: Endpoint{NodeID: r.ID}})

	require.NoError(t, p.Save(ctx, s.Snapshot()))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagram.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.True(t, xerrors.Is(err, xerrors.ErrCodeParse))
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, NewFileStore("").Path())
}

func TestNewMongoStore_RequiresURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), MongoConfig{})
	assert.True(t, xerrors.Is(err, xerrors.ErrCodeInvalidInput))
}

// TestMongoStore_RoundTrip runs against a live server named by
// XWIRE_TEST_MONGO, e.g. XWIRE_TEST_MONGO=mongodb://localhost:27017.
func TestMongoStore_RoundTrip(t *testing.T) {
	uri := os.Getenv("XWIRE_TEST_MONGO")
	if uri == "" {
		t.Skip("XWIRE_TEST_MONGO not set")
	}
	ctx := context.Background()
	p, err := NewMongoStore(ctx, MongoConfig{URI: uri, Database: "xwire_test", Name: t.Name()})
	require.NoError(t, err)
	defer p.Close()

	d, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, d.NodeCount())

	s := NewStore()
	c := s.AddController(NewController())
	s.AddReceiver(NewReceiver())
	require.NoError(t, p.Save(ctx, s.Snapshot()))

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NodeCount())
	assert.True(t, got.HasNode(c.ID))

	require.NoError(t, p.Save(ctx, Empty()))
}
