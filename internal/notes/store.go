package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Well-known file names inside a meeting directory.
const (
	AudioFile      = "audio.mp3"
	TranscriptFile = "transcript.txt"
	NotesFile      = "notes.md"
)

// DefaultRoot returns the base directory for all stored meetings,
// $HOME/Documents/Quorum/Minute.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Quorum", "Minute"), nil
}

// Store persists meeting artifacts under a root directory, one directory
// per meeting.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the directory for a meeting, creating it if needed.
func (s *Store) Dir(name string) (string, error) {
	dir := filepath.Join(s.root, Slug(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create meeting directory %s: %w", dir, err)
	}
	return dir, nil
}

// Saved describes the on-disk locations of a persisted meeting.
type Saved struct {
	Dir            string
	AudioPath      string
	TranscriptPath string
	NotesPath      string
}

// Save writes the audio artifact, raw transcript, and rendered notes for a
// meeting. Missing pieces (nil audio, empty transcript) are skipped.
func (s *Store) Save(name string, audio []byte, transcript string, n *Notes) (*Saved, error) {
	dir, err := s.Dir(name)
	if err != nil {
		return nil, err
	}

	saved := &Saved{Dir: dir}

	if len(audio) > 0 {
		saved.AudioPath = filepath.Join(dir, AudioFile)
		if err := os.WriteFile(saved.AudioPath, audio, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write audio: %w", err)
		}
	}

	if transcript != "" {
		saved.TranscriptPath = filepath.Join(dir, TranscriptFile)
		if err := os.WriteFile(saved.TranscriptPath, []byte(transcript), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write transcript: %w", err)
		}
	}

	if n != nil {
		saved.NotesPath = filepath.Join(dir, NotesFile)
		if err := os.WriteFile(saved.NotesPath, []byte(n.Markdown(time.Now())), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write notes: %w", err)
		}
	}

	return saved, nil
}

// Meeting summarizes one stored meeting for listings.
type Meeting struct {
	Name          string    `json:"name"`
	HasAudio      bool      `json:"hasAudio"`
	HasTranscript bool      `json:"hasTranscript"`
	HasNotes      bool      `json:"hasNotes"`
	ModifiedAt    time.Time `json:"modifiedAt"`
}

// List enumerates stored meetings, newest first.
func (s *Store) List() ([]Meeting, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read meetings root %s: %w", s.root, err)
	}

	var meetings []Meeting
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		meetings = append(meetings, Meeting{
			Name:          entry.Name(),
			HasAudio:      fileExists(filepath.Join(dir, AudioFile)),
			HasTranscript: fileExists(filepath.Join(dir, TranscriptFile)),
			HasNotes:      fileExists(filepath.Join(dir, NotesFile)),
			ModifiedAt:    info.ModTime(),
		})
	}

	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].ModifiedAt.After(meetings[j].ModifiedAt)
	})

	return meetings, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
