package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/store"
)

func TestRun_DumpPrintsBoard(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "board.db")
	t.Setenv("LECTUREBOARD_LOG_FILE", filepath.Join(dir, "board.log"))

	ctx := context.Background()
	client, err := store.NewSQLiteStore(ctx, dbPath, true)
	require.NoError(t, err)
	ctrl := board.NewController(client, nil, model.DefaultColumnTitles)
	require.NoError(t, ctrl.AddTask(ctx, model.ColumnDoing, "Record intro"))
	traffic := 500
	_, err = ctrl.SaveGoals(ctx, &traffic, nil)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	var out bytes.Buffer
	err = run([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", dbPath,
		"--dump",
	}, strings.NewReader(""), &out)
	require.NoError(t, err)

	var got boardDump
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Columns, 4)
	assert.Equal(t, model.ColumnTodo, got.Columns[0].ID)
	assert.Empty(t, got.Columns[0].Tasks)
	require.Len(t, got.Columns[1].Tasks, 1)
	assert.Equal(t, "Record intro", got.Columns[1].Tasks[0].Title)
	require.NotNil(t, got.Goals.TargetTraffic)
	assert.Equal(t, 500, *got.Goals.TargetTraffic)
	assert.Nil(t, got.Goals.TargetConversion)
}

func TestStoreAPIKey(t *testing.T) {
	key, err := storeAPIKey(model.StoreConfig{Backend: model.BackendSQLite})
	require.NoError(t, err)
	assert.Empty(t, key)

	t.Setenv("LECTUREBOARD_STORE_API_KEY", "anon-key")
	key, err = storeAPIKey(model.StoreConfig{Backend: model.BackendREST})
	require.NoError(t, err)
	assert.Equal(t, "anon-key", key)
}

func TestRun_UnknownFlag(t *testing.T) {
	err := run([]string{"--nope"}, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}

func TestRun_InitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "board.db")

	var out bytes.Buffer
	err := run([]string{"--config", path, "--db", dbPath, "--init-config"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), path)

	cfg, err := model.LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dbPath, cfg.Store.SQLitePath)
	assert.Equal(t, model.BackendSQLite, cfg.Store.Backend)

	err = run([]string{"--config", path, "--init-config"}, strings.NewReader(""), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestReadAPIKey(t *testing.T) {
	key, err := readAPIKey(strings.NewReader("\n  anon-key  \nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "anon-key", key)

	_, err = readAPIKey(strings.NewReader("  \n"))
	require.Error(t, err)
}
