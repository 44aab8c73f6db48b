package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coolbeans/regelrecht/pkg/service"
	"github.com/coolbeans/regelrecht/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zvwLaw = `
$id: zvw
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "2.1"
    text: Verzekeringsplicht
    machine_readable:
      public: true
      execution:
        output:
          - name: drempelinkomen
        actions:
          - output: drempelinkomen
            value: 35000
`

func writeLaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDirectoryLoadAllLoadsEveryLawFile(t *testing.T) {
	dir := t.TempDir()
	writeLaw(t, dir, "zvw.yaml", zvwLaw)

	engine := service.NewEngine()
	d := NewDirectory(dir, engine)
	events := d.LoadAll()

	require.Len(t, events, 1)
	assert.Equal(t, "loaded", events[0].Action)
	assert.Equal(t, "zvw", events[0].LawID)
	assert.True(t, engine.HasLaw("zvw"))
}

func TestDirectoryLoadAllSkipsNonLawFiles(t *testing.T) {
	dir := t.TempDir()
	writeLaw(t, dir, "zvw.yaml", zvwLaw)
	writeLaw(t, dir, "README.md", "not a law")

	engine := service.NewEngine()
	d := NewDirectory(dir, engine)
	events := d.LoadAll()

	require.Len(t, events, 1)
	assert.Equal(t, "zvw", events[0].LawID)
}

func TestDirectoryLoadAllReportsErrorsPerFile(t *testing.T) {
	dir := t.TempDir()
	writeLaw(t, dir, "zvw.yaml", zvwLaw)
	writeLaw(t, dir, "broken.yaml", "articles: [unterminated")

	engine := service.NewEngine()
	d := NewDirectory(dir, engine)
	events := d.LoadAll()

	require.Len(t, events, 2)
	var sawError bool
	for _, ev := range events {
		if ev.Action == "error" {
			sawError = true
			assert.Error(t, ev.Err)
		}
	}
	assert.True(t, sawError)
}

func TestDirectoryOnChangeCallbackFires(t *testing.T) {
	dir := t.TempDir()
	writeLaw(t, dir, "zvw.yaml", zvwLaw)

	engine := service.NewEngine()
	d := NewDirectory(dir, engine)

	var received []LoadEvent
	d.OnChange(func(ev LoadEvent) { received = append(received, ev) })
	d.LoadAll()

	require.Len(t, received, 1)
	assert.Equal(t, "zvw", received[0].LawID)
}

func TestDirectoryWatchPicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	engine := service.NewEngine()
	d := NewDirectory(dir, engine)

	loaded := make(chan LoadEvent, 1)
	d.OnChange(func(ev LoadEvent) {
		if ev.Action == "loaded" {
			loaded <- ev
		}
	})

	require.NoError(t, d.Watch())
	defer d.StopWatch()

	writeLaw(t, dir, "zvw.yaml", zvwLaw)

	select {
	case ev := <-loaded:
		assert.Equal(t, "zvw", ev.LawID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}

	result, err := engine.Evaluate("zvw", "drempelinkomen", nil, mustDate(t, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, value.Int(35000), result.Outputs["drempelinkomen"].Value)
}

func TestLoadFileValidatesASingleDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeLaw(t, dir, "zvw.yaml", zvwLaw)

	law, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zvw", law.LawID)
}

func mustDate(t *testing.T, s string) value.Date {
	t.Helper()
	d, err := value.ParseDate(s)
	require.NoError(t, err)
	return d
}
