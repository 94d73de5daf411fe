package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNoOutputFilter(t *testing.T) {
	filter := NoOutputFilter("public")

	assert.False(t, filter("public/index.html"))
	assert.False(t, filter("public"))
	assert.True(t, filter("src/index.html"))
	assert.True(t, filter("publicity/page.html"))
}

func TestIgnoreFilter(t *testing.T) {
	filter := IgnoreFilter([]string{"node_modules", "*.tmp"})

	assert.False(t, filter("src/node_modules/lib/index.js"))
	assert.False(t, filter("src/cache.tmp"))
	assert.True(t, filter("src/index.html"))
	assert.True(t, filter("src/tmp/file.html"))
}

func TestNoHiddenFilter(t *testing.T) {
	assert.False(t, NoHiddenFilter("src/.DS_Store"))
	assert.False(t, NoHiddenFilter(".env"))
	assert.True(t, NoHiddenFilter("src/index.html"))
}

func TestNoEditorTempFilter(t *testing.T) {
	assert.False(t, NoEditorTempFilter("src/index.html~"))
	assert.False(t, NoEditorTempFilter("src/.index.html.swp"))
	assert.False(t, NoEditorTempFilter("src/#index.html#"))
	assert.True(t, NoEditorTempFilter("src/index.html"))
}

func TestNoGitFilter(t *testing.T) {
	assert.False(t, NoGitFilter(".git/HEAD"))
	assert.False(t, NoGitFilter("project/.git/config"))
	assert.True(t, NoGitFilter("src/index.html"))
}

func TestDebouncerDeduplicatesByPath(t *testing.T) {
	d := &Debouncer{
		delay:   time.Hour,
		events:  make(chan ChangeEvent, 10),
		output:  make(chan []ChangeEvent, 1),
		pending: make([]ChangeEvent, 0),
	}

	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.html"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.html"})
	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "a.html"})
	d.timer.Stop()
	d.flush()

	select {
	case events := <-d.output:
		assert.Len(t, events, 2)
		paths := map[string]EventType{}
		for _, e := range events {
			paths[e.Path] = e.Type
		}
		assert.Equal(t, EventTypeCreated, paths["a.html"], "latest event for a path wins")
		assert.Contains(t, paths, "b.html")
	default:
		t.Fatal("expected a debounced batch")
	}
}

func TestDebouncerFlushWithoutEvents(t *testing.T) {
	d := &Debouncer{
		delay:   time.Hour,
		events:  make(chan ChangeEvent, 10),
		output:  make(chan []ChangeEvent, 1),
		pending: make([]ChangeEvent, 0),
	}

	d.flush()

	select {
	case <-d.output:
		t.Fatal("flush with no pending events must emit nothing")
	default:
	}
}

func TestFileWatcherDeliversDebouncedEvents(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll("src", 0755))

	fw, err := NewFileWatcher(50 * time.Millisecond)
	require.NoError(t, err)
	defer fw.Stop()

	received := make(chan []ChangeEvent, 1)
	fw.AddHandler(func(events []ChangeEvent) error {
		select {
		case received <- events:
		default:
		}
		return nil
	})
	fw.AddFilter(NoHiddenFilter)

	require.NoError(t, fw.AddRecursive("src"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join("src", "index.html"), []byte("<p>hi</p>"), 0644))

	select {
	case events := <-received:
		require.NotEmpty(t, events)
		found := false
		for _, e := range events {
			if filepath.Base(e.Path) == "index.html" {
				found = true
			}
		}
		assert.True(t, found, "expected an event for index.html, got %v", events)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for debounced events")
	}
}

func TestAddRecursiveRejectsOutsidePaths(t *testing.T) {
	t.Chdir(t.TempDir())

	fw, err := NewFileWatcher(time.Millisecond)
	require.NoError(t, err)
	defer fw.Stop()

	err = fw.AddRecursive("../outside")
	require.Error(t, err)
}

func TestValidatePathRejectsSiblingWithCommonPrefix(t *testing.T) {
	parent := t.TempDir()
	cwd := filepath.Join(parent, "site")
	sibling := filepath.Join(parent, "site2")
	require.NoError(t, os.Mkdir(cwd, 0755))
	require.NoError(t, os.Mkdir(sibling, 0755))
	t.Chdir(cwd)

	fw, err := NewFileWatcher(time.Millisecond)
	require.NoError(t, err)
	defer fw.Stop()

	// Sibling shares the cwd as a string prefix but is a different tree.
	_, err = fw.validatePath(sibling)
	require.Error(t, err)

	// The cwd itself and paths under it stay valid.
	_, err = fw.validatePath(cwd)
	assert.NoError(t, err)
	_, err = fw.validatePath(filepath.Join(cwd, "src"))
	assert.NoError(t, err)
}
