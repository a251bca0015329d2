package notes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title    string
		expected string
	}{
		{"Q3 Planning Sync", "q3-planning-sync"},
		{"Weekly 1:1 (James)", "weekly-11-james"},
		{"  spaced  out  ", "spaced-out"},
		{"---", ""},
		{"already-a-slug", "already-a-slug"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Slug(tt.title))
		})
	}
}

func TestNotes_Markdown(t *testing.T) {
	t.Parallel()

	n := &Notes{
		Title:     "Q3 Planning",
		Summary:   "We aligned on the Q3 roadmap.",
		Decisions: []string{"Ship the beta in July"},
		Tasks: []Task{
			{Description: "Draft launch announcement", Owner: "dana"},
			{Description: "Update roadmap doc"},
		},
	}

	md := n.Markdown(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))

	assert.Contains(t, md, `title: "Q3 Planning"`)
	assert.Contains(t, md, "date: 2026-08-24")
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "We aligned on the Q3 roadmap.")
	assert.Contains(t, md, "- Ship the beta in July")
	assert.Contains(t, md, "- [ ] Draft launch announcement (dana)")
	assert.Contains(t, md, "- [ ] Update roadmap doc")
}

func TestNotes_MarkdownOmitsEmptySections(t *testing.T) {
	t.Parallel()

	n := &Notes{Title: "Standup", Summary: "Nothing notable."}
	md := n.Markdown(time.Now())

	assert.NotContains(t, md, "## Decisions")
	assert.NotContains(t, md, "## Tasks")
}

func TestStore_SaveAndList(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	saved, err := store.Save("Q3 Planning", []byte("mp3-bytes"), "raw transcript", &Notes{
		Title:   "Q3 Planning",
		Summary: "Summary.",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(saved.Dir, "q3-planning"))

	data, err := os.ReadFile(saved.AudioPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)

	transcript, err := os.ReadFile(saved.TranscriptPath)
	require.NoError(t, err)
	assert.Equal(t, "raw transcript", string(transcript))

	md, err := os.ReadFile(saved.NotesPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Summary")

	meetings, err := store.List()
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "q3-planning", meetings[0].Name)
	assert.True(t, meetings[0].HasAudio)
	assert.True(t, meetings[0].HasTranscript)
	assert.True(t, meetings[0].HasNotes)
}

func TestStore_SaveSkipsMissingPieces(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	saved, err := store.Save("standup", nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, saved.AudioPath)
	assert.Empty(t, saved.TranscriptPath)
	assert.Empty(t, saved.NotesPath)

	entries, err := os.ReadDir(filepath.Join(store.Root(), "standup"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ListMissingRoot(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))

	meetings, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, meetings)
}
