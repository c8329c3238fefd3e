package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jubileesolutions/overlay-backend/internal/config"
)

const (
	maxErrorBodyBytes = 1024
	scrollPageSize    = 256
)

// OperationErrorCode classifies a failed Qdrant call.
type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorQueryFailed     OperationErrorCode = "query_failed"
)

// OperationError is returned by every Qdrant call that fails.
type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("qdrant %s failed (code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("qdrant %s failed (code=%s status=%d): %v", e.Operation, e.Code, e.StatusCode, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}

func isStatus(err error, code int) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.StatusCode == code
}

// Qdrant is an Index backed by a Qdrant collection over its REST API. Point
// ids are entry ids, which are UUIDs and therefore valid Qdrant ids.
type Qdrant struct {
	baseURL    string
	collection string
	apiKey     string
	dim        int
	http       *http.Client
}

var _ Index = (*Qdrant)(nil)

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type rawPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Vector  []float32       `json:"vector"`
	Payload json.RawMessage `json:"payload"`
}

// NewQdrant validates cfg and returns an adapter for its collection. dim is
// the embedding dimension the collection must hold.
func NewQdrant(cfg config.VectorConfig, dim int) (*Qdrant, error) {
	parsed, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333", cfg.URL)
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("QDRANT_COLLECTION is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Qdrant{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		dim:        dim,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// EnsureCollection creates the collection with cosine distance when it does
// not exist, and fails when an existing collection has another vector size.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := q.doJSON(ctx, op, http.MethodGet, q.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		if size := info.Config.Params.Vectors.Size; size != 0 && size != q.dim {
			return &OperationError{Code: OperationErrorValidation, Operation: op,
				Message: fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", q.collection, q.dim, size)}
		}
		return nil
	case isStatus(err, http.StatusNotFound):
		req := map[string]any{"vectors": map[string]any{"size": q.dim, "distance": "Cosine"}}
		if err := q.doJSON(ctx, op, http.MethodPut, q.collectionPath(""), req, nil); err != nil {
			return err
		}
		log.Info().Str("collection", q.collection).Int("dim", q.dim).Msg("qdrant collection created")
		return nil
	default:
		return err
	}
}

// Upsert implements Index.
func (q *Qdrant) Upsert(ctx context.Context, p Point) error {
	const op = "upsert"
	if strings.TrimSpace(p.ID) == "" {
		return &WriteError{Op: op, Err: opErr(op, OperationErrorValidation, "point id is required", nil)}
	}
	if len(p.Vector) != q.dim {
		return &WriteError{Op: op, ID: p.ID, Err: opErr(op, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", q.dim, len(p.Vector)), nil)}
	}
	req := map[string]any{"points": []map[string]any{{
		"id":      p.ID,
		"vector":  p.Vector,
		"payload": p.Payload,
	}}}
	if err := q.doJSON(ctx, op, http.MethodPut, q.collectionPath("/points?wait=true"), req, nil); err != nil {
		return &WriteError{Op: op, ID: p.ID, Err: err}
	}
	return nil
}

// SetPayload implements Index. It overwrites the whole payload.
func (q *Qdrant) SetPayload(ctx context.Context, id string, p Payload) error {
	const op = "set_payload"
	req := map[string]any{"payload": p, "points": []string{id}}
	if err := q.doJSON(ctx, op, http.MethodPut, q.collectionPath("/points/payload?wait=true"), req, nil); err != nil {
		return &WriteError{Op: op, ID: id, Err: err}
	}
	return nil
}

// MarkInactive implements Index. It merges active=false into the payload.
func (q *Qdrant) MarkInactive(ctx context.Context, id string) error {
	const op = "mark_inactive"
	req := map[string]any{"payload": map[string]any{"active": false}, "points": []string{id}}
	if err := q.doJSON(ctx, op, http.MethodPost, q.collectionPath("/points/payload?wait=true"), req, nil); err != nil {
		return &WriteError{Op: op, ID: id, Err: err}
	}
	return nil
}

// Delete implements Index.
func (q *Qdrant) Delete(ctx context.Context, ids ...string) error {
	const op = "delete"
	if len(ids) == 0 {
		return nil
	}
	req := map[string]any{"points": ids}
	if err := q.doJSON(ctx, op, http.MethodPost, q.collectionPath("/points/delete?wait=true"), req, nil); err != nil {
		return &WriteError{Op: op, ID: strings.Join(ids, ","), Err: err}
	}
	return nil
}

// Get implements Index.
func (q *Qdrant) Get(ctx context.Context, id string) (*Point, error) {
	const op = "get"
	var raw rawPoint
	err := q.doJSON(ctx, op, http.MethodGet, q.collectionPath("/points/"+url.PathEscape(id)), nil, &raw)
	if isStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := &Point{ID: id, Vector: raw.Vector}
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, &p.Payload); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
		}
	}
	return p, nil
}

// Search implements Index.
func (q *Qdrant) Search(ctx context.Context, vector []float32, f Filter, limit int) ([]Match, error) {
	const op = "search"
	if len(vector) != q.dim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", q.dim, len(vector)), nil)
	}
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter := translateFilter(f); filter != nil {
		req["filter"] = filter
	}
	var raw []rawPoint
	if err := q.doJSON(ctx, op, http.MethodPost, q.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(raw))
	for _, r := range raw {
		m := Match{ID: decodePointID(r.ID), Score: r.Score}
		if len(r.Payload) > 0 {
			if err := json.Unmarshal(r.Payload, &m.Payload); err != nil {
				return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
			}
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// Count implements Index.
func (q *Qdrant) Count(ctx context.Context, f Filter) (int64, error) {
	req := map[string]any{"exact": true}
	if filter := translateFilter(f); filter != nil {
		req["filter"] = filter
	}
	var res struct {
		Count int64 `json:"count"`
	}
	if err := q.doJSON(ctx, "count", http.MethodPost, q.collectionPath("/points/count"), req, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// ListIDs implements Index by scrolling the whole collection.
func (q *Qdrant) ListIDs(ctx context.Context) ([]string, error) {
	var (
		out    []string
		offset json.RawMessage
	)
	for {
		req := map[string]any{"limit": scrollPageSize, "with_payload": false, "with_vector": false}
		if len(offset) > 0 {
			req["offset"] = offset
		}
		var page struct {
			Points []rawPoint      `json:"points"`
			Next   json.RawMessage `json:"next_page_offset"`
		}
		if err := q.doJSON(ctx, "scroll", http.MethodPost, q.collectionPath("/points/scroll"), req, &page); err != nil {
			return nil, err
		}
		for _, p := range page.Points {
			if id := decodePointID(p.ID); id != "" {
				out = append(out, id)
			}
		}
		if len(page.Next) == 0 || string(page.Next) == "null" {
			break
		}
		offset = page.Next
	}
	sort.Strings(out)
	return out, nil
}

func translateFilter(f Filter) map[string]any {
	var must []any
	add := func(key string, value any) {
		must = append(must, map[string]any{"key": key, "match": map[string]any{"value": value}})
	}
	if f.Domain != "" {
		add("domain", string(f.Domain))
	}
	if f.DomainKey != "" {
		add("scope_domain_key", f.DomainKey)
	}
	if f.ScopeLevel != "" {
		add("scope_level", string(f.ScopeLevel))
	}
	if f.SubKey != nil {
		add("scope_sub_key", *f.SubKey)
	}
	if f.ActiveOnly {
		add("active", true)
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func (q *Qdrant) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := parseEnvelopeStatus(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, "qdrant request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, "qdrant request timed out", err)
	}
	return opErr(op, OperationErrorTransportFailed, "qdrant request failed", err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") || strings.EqualFold(s, "acknowledged") || strings.EqualFold(s, "completed") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", s)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "qdrant status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return strings.TrimSpace(string(raw))
}

func (q *Qdrant) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(q.collection) + suffix
}
