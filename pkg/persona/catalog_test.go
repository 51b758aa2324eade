package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByIdentity(t *testing.T) {
	c := NewCatalog()

	p, err := c.Resolve("speaking-teacher-default")
	require.NoError(t, err)
	assert.Equal(t, "speaking-teacher-default", p.Identity)
	assert.Contains(t, p.AllowedTools, "startTimer")
	assert.Equal(t, DefaultVoice, p.Voice)
	assert.Equal(t, DefaultTemperature, p.Temperature)

	_, err = c.Resolve("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveForPage(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		name         string
		page         string
		wantIdentity string
	}{
		{"speaking page", "speakingpage", "speaking-teacher-default"},
		{"bare speaking alias", "speaking", "speaking-teacher-default"},
		{"mixed case with slash", "/SpeakingPage", "speaking-teacher-default"},
		{"writing page", "writingpage", "writing-teacher-default"},
		{"vocab page", "vocabpage", "vocab-teacher-default"},
		{"unknown page falls back", "dashboard", DefaultIdentity},
		{"empty page falls back", "", DefaultIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.ResolveForPage(tt.page)
			assert.Equal(t, tt.wantIdentity, p.Identity)
		})
	}
}

func TestResolveForPageSupportedPages(t *testing.T) {
	c := NewCatalog()
	c.Add(Config{
		Identity:       "listening-coach",
		Instructions:   "You coach listening tasks.",
		SupportedPages: []string{"listeningpage"},
	})

	p := c.ResolveForPage("listeningpage")
	assert.Equal(t, "listening-coach", p.Identity)
}

func TestNormalizePage(t *testing.T) {
	assert.Equal(t, "speakingpage", NormalizePage("speaking"))
	assert.Equal(t, "speakingpage", NormalizePage(" /Speaking/ "))
	assert.Equal(t, "writingpage", NormalizePage("WritingPage"))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	override := `identity: speaking-teacher-default
description: Customized speaking teacher
instructions: Custom speaking instructions.
voice: Aoede
allowed_tools:
  - startTimer
  - stopTimer
`
	extra := `identity: reading-coach
instructions: You coach reading comprehension.
supported_pages:
  - readingpage
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speaking.yaml"), []byte(override), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reading.yml"), []byte(extra), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{{not yaml"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("skip me"), 0o644))

	c := NewCatalog()
	require.NoError(t, c.LoadDir(dir))

	p, err := c.Resolve("speaking-teacher-default")
	require.NoError(t, err)
	assert.Equal(t, "Aoede", p.Voice, "YAML config should override the built-in")
	assert.Equal(t, []string{"startTimer", "stopTimer"}, p.AllowedTools)

	reading := c.ResolveForPage("readingpage")
	assert.Equal(t, "reading-coach", reading.Identity)
	assert.Equal(t, DefaultVoice, reading.Voice, "defaults apply to loaded configs")
}

func TestLoadDirMissing(t *testing.T) {
	c := NewCatalog()
	assert.NoError(t, c.LoadDir("/nonexistent/personas"))
	assert.NotEmpty(t, c.List(), "built-ins survive a missing directory")
}

func TestLoadDirRejectsMissingIdentity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anon.yaml"), []byte("instructions: hi\n"), 0o644))

	c := NewCatalog()
	before := len(c.List())
	require.NoError(t, c.LoadDir(dir))
	assert.Len(t, c.List(), before, "config without identity is skipped")
}
