package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateForHistory(t *testing.T, process string) {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), generateOptions{
		process:   process,
		equipment: "Robot welder",
		notes:     "two shifts",
		output:    "-",
		format:    "csv",
	}, &out))
}

func TestRunGenerateRecordsHistory(t *testing.T) {
	fake := &fakeProvider{response: weldingResponse}
	setupCommandTest(t, fake)

	generateForHistory(t, "Spot welding")
	generateForHistory(t, "Seam welding")

	err := withHistory(func(s *history.Store) error {
		entries, err := s.List(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		names := []string{entries[0].ProcessName, entries[1].ProcessName}
		assert.ElementsMatch(t, []string{"Spot welding", "Seam welding"}, names)
		for _, e := range entries {
			assert.Equal(t, "cli", e.Source)
			assert.Equal(t, "Robot welder", e.Equipment)
			assert.Equal(t, "two shifts", e.Notes)
			assert.Equal(t, 2, e.Table.Len())
			assert.Len(t, e.Table.Headers, 16)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestHistoryListShowDelete(t *testing.T) {
	fake := &fakeProvider{response: weldingResponse}
	dir := setupCommandTest(t, fake)
	generateForHistory(t, "Spot welding")

	var id string
	require.NoError(t, withHistory(func(s *history.Store) error {
		entries, err := s.List(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		id = entries[0].ID

		var list bytes.Buffer
		require.NoError(t, listHistory(context.Background(), s, 10, &list))
		assert.Contains(t, list.String(), "PROCESS")
		assert.Contains(t, list.String(), id[:8])
		assert.Contains(t, list.String(), "Spot welding")
		return nil
	}))

	t.Run("display", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, withHistory(func(s *history.Store) error {
			return showHistory(context.Background(), s, id[:8], "", "", false, &out)
		}))
		assert.Contains(t, out.String(), "Spot welding on Robot welder")
		assert.Contains(t, out.String(), "Notes: two shifts")
		assert.Contains(t, out.String(), "2 rows x 16 columns")
	})

	t.Run("stdout csv", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, withHistory(func(s *history.Store) error {
			return showHistory(context.Background(), s, id, "", "csv", false, &out)
		}))
		assert.True(t, strings.HasPrefix(out.String(), "station number,process name,"))
	})

	t.Run("file export", func(t *testing.T) {
		path := filepath.Join(dir, "again.md")
		require.NoError(t, withHistory(func(s *history.Store) error {
			return showHistory(context.Background(), s, id, path, "", false, &bytes.Buffer{})
		}))
		assert.FileExists(t, path)
	})

	t.Run("raw response", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, withHistory(func(s *history.Store) error {
			return showHistory(context.Background(), s, id, "", "", true, &out)
		}))
		assert.Equal(t, weldingResponse, out.String())
	})

	t.Run("unknown id", func(t *testing.T) {
		err := withHistory(func(s *history.Store) error {
			return showHistory(context.Background(), s, "does-not-exist", "", "", false, &bytes.Buffer{})
		})
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	require.NoError(t, withHistory(func(s *history.Store) error {
		require.NoError(t, s.Delete(context.Background(), id))
		var list bytes.Buffer
		require.NoError(t, listHistory(context.Background(), s, 0, &list))
		assert.Contains(t, list.String(), "No generations recorded yet.")
		return nil
	}))
}

func TestHistoryOff(t *testing.T) {
	fake := &fakeProvider{response: weldingResponse}
	setupCommandTest(t, fake)
	envConfig.HistoryFile = "off"

	generateForHistory(t, "Spot welding")

	err := withHistory(func(*history.Store) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is turned off")
}
