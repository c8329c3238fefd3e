package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Index with exact cosine search.
type Memory struct {
	mu     sync.RWMutex
	dim    int
	points map[string]Point
}

// NewMemory returns an empty index. When dim is positive, vectors of any
// other length are rejected.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, points: make(map[string]Point)}
}

var _ Index = (*Memory)(nil)

// Upsert implements Index.
func (m *Memory) Upsert(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "upsert", ID: p.ID, Err: err}
	}
	if strings.TrimSpace(p.ID) == "" {
		return &WriteError{Op: "upsert", Err: fmt.Errorf("point id is required")}
	}
	if len(p.Vector) == 0 || (m.dim > 0 && len(p.Vector) != m.dim) {
		return &WriteError{Op: "upsert", ID: p.ID,
			Err: fmt.Errorf("vector dimension mismatch: expected=%d got=%d", m.dim, len(p.Vector))}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Vector = append([]float32(nil), p.Vector...)
	m.points[p.ID] = p
	return nil
}

// SetPayload implements Index.
func (m *Memory) SetPayload(ctx context.Context, id string, p Payload) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "set_payload", ID: id, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.points[id]
	if !ok {
		return &WriteError{Op: "set_payload", ID: id, Err: ErrPointNotFound}
	}
	cur.Payload = p
	m.points[id] = cur
	return nil
}

// MarkInactive implements Index.
func (m *Memory) MarkInactive(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "mark_inactive", ID: id, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.points[id]
	if !ok {
		return &WriteError{Op: "mark_inactive", ID: id, Err: ErrPointNotFound}
	}
	cur.Payload.Active = false
	m.points[id] = cur
	return nil
}

// Delete implements Index.
func (m *Memory) Delete(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "delete", ID: strings.Join(ids, ","), Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

// Get implements Index.
func (m *Memory) Get(ctx context.Context, id string) (*Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[id]
	if !ok {
		return nil, nil
	}
	p.Vector = append([]float32(nil), p.Vector...)
	return &p, nil
}

// Search implements Index. Results are ordered by score descending, then id.
func (m *Memory) Search(ctx context.Context, vector []float32, f Filter, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	out := make([]Match, 0, len(m.points))
	for id, p := range m.points {
		if !f.matches(p.Payload) || len(p.Vector) != len(vector) {
			continue
		}
		out = append(out, Match{ID: id, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count implements Index.
func (m *Memory) Count(ctx context.Context, f Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.points {
		if f.matches(p.Payload) {
			n++
		}
	}
	return n, nil
}

// ListIDs implements Index. IDs are sorted.
func (m *Memory) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]string, 0, len(m.points))
	for id := range m.points {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
