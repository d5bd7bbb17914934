// lectureboard is a terminal kanban board for planning a lecture project.
//
// Tasks live in four fixed columns and two goal targets persist across
// sessions. The board is stored in a local sqlite file by default, or in a
// hosted postgres database or PostgREST API when configured.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nhle/lecture-board/internal/app"
	"github.com/nhle/lecture-board/internal/board"
	"github.com/nhle/lecture-board/internal/credential"
	"github.com/nhle/lecture-board/internal/logging"
	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var configPath string
	var dump, initConfig, setAPIKey, deleteAPIKey bool

	fs := pflag.NewFlagSet("lectureboard", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")
	fs.String("backend", model.BackendSQLite, "store backend: sqlite, postgres or rest")
	fs.String("db", model.DefaultDBPath(), "sqlite database file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&dump, "dump", false, "print the board as YAML and exit")
	fs.BoolVar(&initConfig, "init-config", false, "write the effective config to --config and exit")
	fs.BoolVar(&setAPIKey, "set-api-key", false, "read the rest API key from stdin, store it in the keyring and exit")
	fs.BoolVar(&deleteAPIKey, "delete-api-key", false, "remove the rest API key from the keyring and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(configPath, fs)
	if err != nil {
		return err
	}

	switch {
	case initConfig:
		return writeConfig(configPath, cfg, stdout)
	case setAPIKey:
		key, err := readAPIKey(stdin)
		if err != nil {
			return err
		}
		if err := credential.Set(credential.KeyStoreAPIKey, key); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "API key stored in the keyring.")
		return nil
	case deleteAPIKey:
		if err := credential.Delete(credential.KeyStoreAPIKey); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "API key removed from the keyring.")
		return nil
	}

	closer, err := logging.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	apiKey, err := storeAPIKey(cfg.Store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := store.Open(ctx, cfg.Store, apiKey)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	defer client.Close()

	titles := make(map[model.ColumnID]string, len(model.ColumnIDs))
	for _, id := range model.ColumnIDs {
		titles[id] = cfg.ColumnTitle(id)
	}

	log.WithField("backend", cfg.Store.Backend).Info("starting lecture board")

	if dump {
		return dumpBoard(ctx, client, titles, cfg.Store.TimeoutSec, stdout)
	}

	notices := &board.NoticeBuffer{}
	ctrl := board.NewController(client, notices, titles)

	p := tea.NewProgram(app.New(ctrl, notices, cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}

// storeAPIKey returns the REST API key. Other backends need none.
func storeAPIKey(cfg model.StoreConfig) (string, error) {
	if cfg.Backend != model.BackendREST {
		return "", nil
	}
	key, err := credential.Lookup(credential.KeyStoreAPIKey)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return "", errors.New("no API key for the rest backend: set LECTUREBOARD_STORE_API_KEY " +
				"or run lectureboard --set-api-key")
		}
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return key, nil
}

// writeConfig saves cfg to path. An existing file is left alone.
func writeConfig(path string, cfg *model.AppConfig, w io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config %s: %w", path, err)
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

// readAPIKey returns the first non-blank line of r.
func readAPIKey(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if key := strings.TrimSpace(sc.Text()); key != "" {
			return key, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return "", errors.New("no API key on stdin")
}

// boardDump is the YAML document written by --dump.
type boardDump struct {
	Columns []model.Column `yaml:"columns"`
	Goals   model.Goals    `yaml:"goals"`
}

func dumpBoard(
	ctx context.Context,
	client store.Client,
	titles map[model.ColumnID]string,
	timeoutSec int,
	w io.Writer,
) error {
	if timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
		defer cancel()
	}

	ctrl := board.NewController(client, nil, titles)
	if err := ctrl.Load(ctx); err != nil {
		return fmt.Errorf("loading board: %w", err)
	}
	snap := ctrl.Snapshot()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(boardDump{Columns: snap.Columns, Goals: snap.Goals}); err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	return enc.Close()
}
