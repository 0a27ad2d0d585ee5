package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clara-project/clara-core/internal/adapter/postgres/audiofile"
	"github.com/clara-project/clara-core/internal/domain"
)

// fakeIndex is an in-memory stand-in for the audiofile repository.
type fakeIndex struct {
	mu      sync.Mutex
	records map[string]*audiofile.Record
	puts    int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string]*audiofile.Record{}}
}

func (f *fakeIndex) key(engine, language, voice, text string) string {
	return strings.Join([]string{engine, language, voice, text}, "\x00")
}

func (f *fakeIndex) Get(_ context.Context, engine, language, voice, text string) (*audiofile.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[f.key(engine, language, voice, text)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeIndex) Put(_ context.Context, engine, language, voice, text, filePath string) (*audiofile.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	rec := &audiofile.Record{
		ID:        uuid.New(),
		Engine:    engine,
		Language:  language,
		Voice:     voice,
		Text:      text,
		FilePath:  filePath,
		CreatedAt: time.Now(),
	}
	f.records[f.key(engine, language, voice, text)] = rec
	return rec, nil
}

func (f *fakeIndex) DeleteFor(_ context.Context, engine, language string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.records {
		if strings.HasPrefix(k, engine+"\x00"+language+"\x00") {
			delete(f.records, k)
			n++
		}
	}
	return n, nil
}

func sourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.mp3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStore_PutCopiesIntoManagedTree(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store := NewStore(base, newFakeIndex())

	path, err := store.Put(context.Background(), "acme_tts", "french", "celine", "le chat", sourceFile(t, "audio-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, filepath.Join(base, "acme_tts", "french", "celine")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	got, err := store.Get(context.Background(), "acme_tts", "french", "celine", "le chat")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestStore_PutIsIdempotentPerKey(t *testing.T) {
	t.Parallel()

	idx := newFakeIndex()
	store := NewStore(t.TempDir(), idx)

	first, err := store.Put(context.Background(), "acme_tts", "french", "celine", "le chat", sourceFile(t, "one"))
	require.NoError(t, err)
	second, err := store.Put(context.Background(), "acme_tts", "french", "celine", "le chat", sourceFile(t, "two"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, idx.puts)
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data), "existing artifact wins")
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), newFakeIndex())
	_, err := store.Get(context.Background(), "acme_tts", "french", "celine", "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteFor(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	idx := newFakeIndex()
	store := NewStore(base, idx)

	path, err := store.Put(context.Background(), "acme_tts", "french", "celine", "le chat", sourceFile(t, "x"))
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "acme_tts", "japanese", "yuki", "犬", sourceFile(t, "y"))
	require.NoError(t, err)

	n, err := store.DeleteFor(context.Background(), "acme_tts", "french")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = store.Get(context.Background(), "acme_tts", "japanese", "yuki", "犬")
	assert.NoError(t, err, "other languages keep their artifacts")
}
