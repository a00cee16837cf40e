package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/crawler"
)

func testSinkConfig() config.SinkConfig {
	return config.SinkConfig{
		Type:    "file",
		Workers: 1,
		File:    config.FileSink{Directory: "."},
	}
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	items := []crawler.Item{
		{ID: "p1", Kind: crawler.KindPost, CreatedAt: 100, Data: map[string]string{"desc": "first"}},
		{ID: "p2", Kind: crawler.KindPost, CreatedAt: 99, Data: map[string]string{"desc": "second"}},
		{ID: "c1", Kind: crawler.KindComment, CreatedAt: 98, Data: map[string]string{"text": "nice"}},
	}
	for _, it := range items {
		require.NoError(t, s.Write(context.Background(), NewRecord(crawler.PlatformDouyin, it)))
	}
	require.NoError(t, s.Close())

	posts := readLines(t, filepath.Join(dir, "dy_post.jsonl"))
	require.Len(t, posts, 2)
	comments := readLines(t, filepath.Join(dir, "dy_comment.jsonl"))
	require.Len(t, comments, 1)

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(posts[0]), &rec))
	assert.Equal(t, "dy", rec.Platform)
	assert.Equal(t, "post", rec.Kind)
	assert.Equal(t, "p1", rec.ItemID)
	assert.Equal(t, int64(100), rec.CreatedAt)
	assert.False(t, rec.FetchedAt.IsZero())
}

func TestFileSinkAppendsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		s, err := NewFileSink(dir, nil)
		require.NoError(t, err)
		item := crawler.Item{ID: "p1", Kind: crawler.KindPost}
		require.NoError(t, s.Write(context.Background(), NewRecord(crawler.PlatformDouyin, item)))
		require.NoError(t, s.Close())
	}

	assert.Len(t, readLines(t, filepath.Join(dir, "dy_post.jsonl")), 2)
}

func TestNewRejectsUnknownType(t *testing.T) {
	cfg := testSinkConfig()
	cfg.Type = "carrier-pigeon"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNewBuildsFileSink(t *testing.T) {
	cfg := testSinkConfig()
	cfg.File.Directory = t.TempDir()

	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &FileSink{}, s)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}
