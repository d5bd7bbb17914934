package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// codeTableNotFound is PostgREST's own code for an unknown table; it is
// reported as CodeRelationMissing.
const codeTableNotFound = "PGRST205"

// restJSON decodes numbers as json.Number so integers survive intact.
var restJSON = sonic.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// RESTClient is a thin HTTP client for a PostgREST-compatible API such as
// the one Supabase exposes under /rest/v1. It authenticates with an API
// key sent both as the apikey header and as a Bearer token.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTClient creates a client for the project at baseURL
// (e.g., https://xyz.supabase.co).
func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *RESTClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// From returns the accessor for table.
func (c *RESTClient) From(table string) Table {
	return &restTable{client: c, name: table}
}

// Close releases idle connections.
func (c *RESTClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// restError is the error body PostgREST returns.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// do builds the request, sends it, and decodes a JSON array response into
// result when result is non-nil.
func (c *RESTClient) do(
	ctx context.Context,
	op string,
	table string,
	method string,
	query url.Values,
	body any,
	result *[]Row,
) error {
	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := restJSON.Marshal(body)
		if err != nil {
			return &Error{Op: op, Table: table, Message: "marshaling request body", Err: err}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return &Error{Op: op, Table: table, Message: "creating request", Err: err}
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if result != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{
			Op: op, Table: table,
			Message: fmt.Sprintf("executing request %s %s", method, table),
			Err:     err,
		}
	}
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return &Error{Op: op, Table: table, Message: "reading response body", Err: readErr}
	}

	log.WithFields(log.Fields{
		"method": method,
		"table":  table,
		"status": resp.StatusCode,
	}).Debug("rest round trip")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRESTError(op, table, resp.StatusCode, respBody)
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	var raw []map[string]any
	if err := restJSON.Unmarshal(respBody, &raw); err != nil {
		return &Error{
			Op: op, Table: table,
			Message: fmt.Sprintf("unmarshaling response from %s %s", method, table),
			Err:     err,
		}
	}
	rows := make([]Row, len(raw))
	for i, r := range raw {
		row := make(Row, len(r))
		for k, v := range r {
			row[k] = normalizeJSONValue(v)
		}
		rows[i] = row
	}
	*result = rows
	return nil
}

// decodeRESTError turns a non-2xx response into a *Error.
func decodeRESTError(op, table string, status int, body []byte) error {
	var re restError
	if restJSON.Unmarshal(body, &re) == nil && (re.Code != "" || re.Message != "") {
		code := re.Code
		if code == codeTableNotFound {
			code = CodeRelationMissing
		}
		msg := re.Message
		if re.Details != "" {
			msg += ": " + re.Details
		}
		return &Error{Op: op, Table: table, Code: code, Message: msg}
	}
	return &Error{
		Op: op, Table: table,
		Message: fmt.Sprintf("unexpected status %d: %s", status, string(body)),
	}
}

// normalizeJSONValue turns json.Number into int64 or float64.
func normalizeJSONValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// restTable is the Table implementation for the REST backend.
type restTable struct {
	client *RESTClient
	name   string
}

func (t *restTable) SelectAll(
	ctx context.Context,
	orderBy string,
	ascending bool,
) ([]Row, error) {
	if err := checkOrder("select", t.name, orderBy); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", orderClause(orderBy, !ascending))

	var rows []Row
	if err := t.client.do(ctx, "select", t.name, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *restTable) SelectLimited(
	ctx context.Context,
	limit int,
	orderBy string,
	descending bool,
) ([]Row, error) {
	if limit <= 0 {
		return nil, &Error{
			Op: "select", Table: t.name, Code: CodeInvalidInput,
			Message: fmt.Sprintf("limit must be positive, got %d", limit),
		}
	}
	if err := checkOrder("select", t.name, orderBy); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", orderClause(orderBy, descending))
	q.Set("limit", strconv.Itoa(limit))

	var rows []Row
	if err := t.client.do(ctx, "select", t.name, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *restTable) Insert(ctx context.Context, row Row) (Row, error) {
	if _, err := checkColumns("insert", t.name, row); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("select", "*")

	var rows []Row
	if err := t.client.do(ctx, "insert", t.name, http.MethodPost, q, encodeRow(row), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Op: "insert", Table: t.name, Message: "insert returned no row"}
	}
	return rows[0], nil
}

func (t *restTable) Update(ctx context.Context, id string, fields Row) error {
	if _, err := checkColumns("update", t.name, fields); err != nil {
		return err
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	return t.client.do(ctx, "update", t.name, http.MethodPatch, q, encodeRow(fields), nil)
}

func (t *restTable) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return t.client.do(ctx, "delete", t.name, http.MethodDelete, q, nil, nil)
}

func orderClause(column string, descending bool) string {
	if descending {
		return column + ".desc"
	}
	return column + ".asc"
}

// encodeRow renders time values as RFC 3339 so the server parses them as
// absolute timestamps.
func encodeRow(row Row) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.UTC().Format(time.RFC3339Nano)
		case *time.Time:
			if t == nil {
				out[k] = nil
			} else {
				out[k] = t.UTC().Format(time.RFC3339Nano)
			}
		default:
			out[k] = v
		}
	}
	return out
}
