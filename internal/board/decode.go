package board

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/lecture-board/internal/model"
	"github.com/nhle/lecture-board/internal/store"
)

// timeLayouts are the textual timestamp forms the backends hand back:
// PostgREST JSON, SQLite driver strings, and bare dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var timeType = reflect.TypeOf(time.Time{})

// parseTimeHook converts string timestamps into time.Time.
func parseTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

// jsonNumberHook unwraps json.Number so integer fields decode cleanly.
func jsonNumberHook(from, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}

func decodeRow(row store.Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonNumberHook,
			parseTimeHook,
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return err
	}
	return nil
}

// decodeTask turns a tasks row into a model.Task.
func decodeTask(row store.Row) (model.Task, error) {
	var t model.Task
	if err := decodeRow(row, &t); err != nil {
		return model.Task{}, fmt.Errorf("decoding task row: %w", err)
	}
	return t, nil
}

// decodeTasks decodes rows in order. A row that cannot be decoded is
// dropped from view, like a row with an unknown column.
func decodeTasks(rows []store.Row) []model.Task {
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := decodeTask(row)
		if err != nil {
			log.WithError(err).WithField("task_id", row["id"]).Debug("dropping undecodable task row")
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// decodeGoals turns a goals row into model.Goals.
func decodeGoals(row store.Row) (model.Goals, error) {
	var g model.Goals
	if err := decodeRow(row, &g); err != nil {
		return model.Goals{}, fmt.Errorf("decoding goals row: %w", err)
	}
	return g, nil
}
