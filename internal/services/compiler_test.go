package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/embedding"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

const testDim = 4

// fakeEmbedder returns a deterministic vector per text and records calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	texts   []string
	failFor map[string]bool // any batch containing one of these texts fails
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, testDim)
	v[0] = 1
	for i, r := range text {
		v[1+i%(testDim-1)] += float32(r % 7)
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failFor[t] {
			return nil, &embedding.ProviderError{Op: "embed_batch", Model: "fake", Err: errors.New("rate limited")}
		}
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return testDim }
func (f *fakeEmbedder) Model() string  { return "fake" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// flakyIndex fails writes for selected ids.
type flakyIndex struct {
	*vectorindex.Memory
	failWrite map[string]bool
}

func (x *flakyIndex) Upsert(ctx context.Context, p vectorindex.Point) error {
	if x.failWrite[p.ID] {
		return &vectorindex.WriteError{Op: "upsert", ID: p.ID, Err: errors.New("disk full")}
	}
	return x.Memory.Upsert(ctx, p)
}

type compileFixture struct {
	svc   *OverlayService
	emb   *fakeEmbedder
	index *vectorindex.Memory
	comp  *Compiler
}

func newCompileFixture(t *testing.T) *compileFixture {
	t.Helper()
	svc := newOverlaySvc(t)
	emb := &fakeEmbedder{}
	idx := vectorindex.NewMemory(testDim)
	comp := NewCompiler(svc.DB, emb, idx, 0)
	comp.Now = tickClock()
	return &compileFixture{svc: svc, emb: emb, index: idx, comp: comp}
}

func mustCompile(t *testing.T, c *Compiler, opts CompileOptions) *CompileResult {
	t.Helper()
	res, err := c.Compile(context.Background(), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return res
}

type counts struct{ New, Re, Meta, Same, Soft, Purged, Errs int }

func countsOf(r *CompileResult) counts {
	return counts{r.NewEntries, r.ReEmbedded, r.UpdatedMetadata, r.Unchanged, r.SoftDeleted, r.Purged, len(r.Errors)}
}

func TestCompiler_Scenario_NewMetadataContent(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()
	a := mustCreate(t, f.svc, sharedInput("Tone", "Be gentle"))

	res := mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{New: 1}) {
		t.Fatalf("first compile = %+v", got)
	}
	pt, _ := f.index.Get(ctx, a.ID)
	if pt == nil || pt.Payload.ContentHash != a.ContentHash || !pt.Payload.Active || pt.Payload.Title != "Tone" {
		t.Fatalf("point not written as expected: %+v", pt)
	}
	calls := f.emb.callCount()

	if _, err := f.svc.UpdateMetadata(ctx, a.ID, MetadataPatch{Title: strp("Gentleness")}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	res = mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Meta: 1}) {
		t.Fatalf("metadata compile = %+v", got)
	}
	if f.emb.callCount() != calls {
		t.Fatalf("metadata-only change must not call the embedder")
	}
	pt, _ = f.index.Get(ctx, a.ID)
	if pt.Payload.Title != "Gentleness" {
		t.Fatalf("payload not refreshed: %+v", pt.Payload)
	}

	if _, err := f.svc.UpdateContent(ctx, a.ID, "Be gentle and kind"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	res = mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Re: 1}) {
		t.Fatalf("content compile = %+v", got)
	}
	if f.emb.callCount() != calls+1 {
		t.Fatalf("content change should embed once, calls=%d", f.emb.callCount())
	}
}

func TestCompiler_Idempotent(t *testing.T) {
	f := newCompileFixture(t)
	for _, title := range []string{"A", "B", "C"} {
		mustCreate(t, f.svc, sharedInput(title, "body "+title))
	}
	mustCompile(t, f.comp, CompileOptions{})
	calls := f.emb.callCount()

	res := mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Same: 3}) {
		t.Fatalf("second compile = %+v", got)
	}
	if len(res.Errors) != 0 || f.emb.callCount() != calls {
		t.Fatalf("second compile must be a no-op: errors=%v calls=%d", res.Errors, f.emb.callCount())
	}
}

func TestCompiler_DryRunNeverWrites(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()
	a := mustCreate(t, f.svc, sharedInput("A", "alpha"))
	mustCompile(t, f.comp, CompileOptions{})
	first, _ := f.comp.Status(ctx)

	mustCreate(t, f.svc, sharedInput("B", "beta"))
	if _, err := f.svc.UpdateContent(ctx, a.ID, "alpha two"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	before, _ := f.index.Count(ctx, vectorindex.Filter{})
	calls := f.emb.callCount()

	res := mustCompile(t, f.comp, CompileOptions{DryRun: true})
	if got := countsOf(res); got != (counts{New: 1, Re: 1}) || !res.DryRun {
		t.Fatalf("dry run plan = %+v", got)
	}
	after, _ := f.index.Count(ctx, vectorindex.Filter{})
	if before != after || f.emb.callCount() != calls {
		t.Fatalf("dry run changed state: count %d->%d calls %d->%d", before, after, calls, f.emb.callCount())
	}
	pt, _ := f.index.Get(ctx, a.ID)
	if pt.Payload.ContentHash == domain.ContentHash("alpha two") {
		t.Fatalf("dry run must not re-embed")
	}

	st, err := f.comp.Status(ctx)
	if err != nil || st.LastRun.ID != first.LastRun.ID {
		t.Fatalf("dry run must not replace the last run: %+v %v", st, err)
	}

	res = mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{New: 1, Re: 1}) {
		t.Fatalf("real run after preview = %+v", got)
	}
}

func TestCompiler_SoftDeleteAndPurge(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()
	a := mustCreate(t, f.svc, sharedInput("A", "alpha"))
	b := mustCreate(t, f.svc, sharedInput("B", "beta"))
	c := mustCreate(t, f.svc, sharedInput("C", "gamma"))
	mustCompile(t, f.comp, CompileOptions{})

	if err := f.svc.SoftDelete(ctx, a.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := f.svc.HardDelete(ctx, b.ID, HardDeletePrefix+b.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}

	res := mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Same: 1, Soft: 1, Purged: 1}) {
		t.Fatalf("compile = %+v", got)
	}
	pa, _ := f.index.Get(ctx, a.ID)
	if pa == nil || pa.Payload.Active {
		t.Fatalf("soft-deleted entry should stay as an inactive point: %+v", pa)
	}
	if pb, _ := f.index.Get(ctx, b.ID); pb != nil {
		t.Fatalf("hard-deleted entry's point should be purged")
	}
	if n, _ := f.index.Count(ctx, vectorindex.Filter{ActiveOnly: true}); n != 1 {
		t.Fatalf("active points = %d; want 1 (%s)", n, c.ID)
	}

	res = mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Same: 2}) {
		t.Fatalf("follow-up compile = %+v", got)
	}
}

func TestCompiler_DraftsIndexedInactive(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()
	in := sharedInput("A", "alpha")
	in.Status = ""
	d := mustCreate(t, f.svc, in)
	if d.Status != domain.StatusDraft {
		t.Fatalf("default status = %q", d.Status)
	}

	res := mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{New: 1}) {
		t.Fatalf("draft compile = %+v", got)
	}
	pt, _ := f.index.Get(ctx, d.ID)
	if pt == nil || pt.Payload.Active || pt.Payload.Status != domain.StatusDraft {
		t.Fatalf("draft should be indexed inactive: %+v", pt)
	}
	if n, _ := f.index.Count(ctx, vectorindex.Filter{ActiveOnly: true}); n != 0 {
		t.Fatalf("active count = %d; want 0", n)
	}
	calls := f.emb.callCount()

	if _, err := f.svc.UpdateStatus(ctx, d.ID, domain.StatusActive); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	res = mustCompile(t, f.comp, CompileOptions{})
	if got := countsOf(res); got != (counts{Meta: 1}) {
		t.Fatalf("activated compile = %+v", got)
	}
	if f.emb.callCount() != calls {
		t.Fatalf("activation must not re-embed")
	}
	if pt, _ := f.index.Get(ctx, d.ID); pt == nil || !pt.Payload.Active {
		t.Fatalf("point should be active after activation: %+v", pt)
	}
}

func TestCompiler_EmbeddingFailureAttributedToEntry(t *testing.T) {
	f := newCompileFixture(t)
	var ids []string
	var boom string
	for _, body := range []string{"one", "two", "boom", "four", "five", "six"} {
		e := mustCreate(t, f.svc, sharedInput("T "+body, body))
		ids = append(ids, e.ID)
		if body == "boom" {
			boom = e.ID
		}
	}
	sort.Strings(ids)
	f.emb.failFor = map[string]bool{"boom": true}

	res := mustCompile(t, f.comp, CompileOptions{BatchSize: 2, Verbose: true})
	// three batch calls plus one retry per entry of the failed batch
	if f.emb.callCount() != 5 {
		t.Fatalf("embed calls = %d; want 5", f.emb.callCount())
	}
	if len(res.Errors) != 1 || res.NewEntries != 5 {
		t.Fatalf("expected only the failing entry to be reported, got %+v", countsOf(res))
	}
	if e := res.Errors[0]; e.EntryID != boom || e.Kind != ErrKindEmbedding || e.Message == "" {
		t.Fatalf("error unexpected: %+v", e)
	}

	var seen []string
	for _, a := range res.Actions {
		seen = append(seen, a.EntryID)
	}
	if !reflect.DeepEqual(seen, ids) {
		t.Fatalf("actions must follow id order: %v want %v", seen, ids)
	}

	f.emb.failFor = nil
	res = mustCompile(t, f.comp, CompileOptions{BatchSize: 2})
	if got := countsOf(res); got != (counts{New: 1, Same: 5}) {
		t.Fatalf("re-run should pick up the failed entry: %+v", got)
	}
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct{ fakeEmbedder }

func (s *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.fakeEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

func TestCompiler_ShortEmbeddingBatch(t *testing.T) {
	svc := newOverlaySvc(t)
	for _, body := range []string{"one", "two", "three"} {
		mustCreate(t, svc, sharedInput("T "+body, body))
	}
	idx := vectorindex.NewMemory(testDim)
	comp := NewCompiler(svc.DB, &shortEmbedder{}, idx, 10)

	res := mustCompile(t, comp, CompileOptions{})
	if got := countsOf(res); got != (counts{New: 3}) {
		t.Fatalf("short batch should fall back to single embeds: %+v", got)
	}
	if n, _ := idx.Count(context.Background(), vectorindex.Filter{}); n != 3 {
		t.Fatalf("indexed %d points; want 3", n)
	}
}

func TestCompiler_IndexWriteFailure(t *testing.T) {
	svc := newOverlaySvc(t)
	a := mustCreate(t, svc, sharedInput("A", "alpha"))
	b := mustCreate(t, svc, sharedInput("B", "beta"))
	idx := &flakyIndex{Memory: vectorindex.NewMemory(testDim), failWrite: map[string]bool{a.ID: true}}
	comp := NewCompiler(svc.DB, &fakeEmbedder{}, idx, 10)

	res, err := comp.Compile(context.Background(), CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.NewEntries != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected counts: %+v", countsOf(res))
	}
	if e := res.Errors[0]; e.EntryID != a.ID || e.Kind != ErrKindIndexWrite {
		t.Fatalf("error unexpected: %+v", e)
	}
	if pt, _ := idx.Get(context.Background(), b.ID); pt == nil {
		t.Fatalf("other entry should still be written")
	}
}

// listFailIndex fails the purge scan.
type listFailIndex struct {
	*vectorindex.Memory
}

func (listFailIndex) ListIDs(context.Context) ([]string, error) {
	return nil, errors.New("scroll timeout")
}

func TestCompiler_ListIDsFailureKeepsPass(t *testing.T) {
	svc := newOverlaySvc(t)
	a := mustCreate(t, svc, sharedInput("A", "alpha"))
	idx := listFailIndex{Memory: vectorindex.NewMemory(testDim)}
	comp := NewCompiler(svc.DB, &fakeEmbedder{}, idx, 10)
	ctx := context.Background()

	res, err := comp.Compile(ctx, CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.NewEntries != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected counts: %+v", countsOf(res))
	}
	if e := res.Errors[0]; e.EntryID != ListIDsErrorID || e.Kind != ErrKindIndexRead {
		t.Fatalf("error unexpected: %+v", e)
	}
	if pt, _ := idx.Get(ctx, a.ID); pt == nil {
		t.Fatalf("entry should still be indexed")
	}

	st, err := NewCompiler(svc.DB, &fakeEmbedder{}, idx, 10).Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.LastRun == nil || st.LastRun.ID != res.ID || len(st.LastRun.Errors) != 1 {
		t.Fatalf("pass should be persisted: %+v", st.LastRun)
	}
}

func TestCompiler_CompileEntries(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()
	a := mustCreate(t, f.svc, sharedInput("A", "alpha"))
	b := mustCreate(t, f.svc, sharedInput("B", "beta"))
	gone := mustCreate(t, f.svc, sharedInput("C", "gamma"))
	mustCompile(t, f.comp, CompileOptions{})
	if err := f.svc.HardDelete(ctx, gone.ID, HardDeletePrefix+gone.ID); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if _, err := f.svc.UpdateContent(ctx, a.ID, "alpha two"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}
	if _, err := f.svc.UpdateContent(ctx, b.ID, "beta two"); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}

	unknown := uuid.NewString()
	res, err := f.comp.CompileEntries(ctx, []string{a.ID, a.ID, gone.ID, unknown}, CompileOptions{})
	if err != nil {
		t.Fatalf("CompileEntries: %v", err)
	}
	if res.Mode != ModeTargeted {
		t.Fatalf("mode = %q", res.Mode)
	}
	if got := countsOf(res); got != (counts{Re: 1, Purged: 1, Errs: 1}) {
		t.Fatalf("targeted compile = %+v", got)
	}
	if e := res.Errors[0]; e.EntryID != unknown || e.Kind != ErrKindNotFound {
		t.Fatalf("error unexpected: %+v", e)
	}
	pb, _ := f.index.Get(ctx, b.ID)
	if pb.Payload.ContentHash == domain.ContentHash("beta two") {
		t.Fatalf("entries outside the id list must not be touched")
	}

	if _, err := f.comp.CompileEntries(ctx, nil, CompileOptions{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty ids: expected ErrValidation, got %v", err)
	}
}

func TestCompiler_StatusPersistsAcrossInstances(t *testing.T) {
	f := newCompileFixture(t)
	ctx := context.Background()

	st, err := f.comp.Status(ctx)
	if err != nil || st.LastRun != nil || st.IndexedActive != 0 {
		t.Fatalf("fresh status unexpected: %+v %v", st, err)
	}

	mustCreate(t, f.svc, sharedInput("A", "alpha"))
	mustCreate(t, f.svc, sharedInput("B", "beta"))
	res := mustCompile(t, f.comp, CompileOptions{})

	st, err = f.comp.Status(ctx)
	if err != nil || st.LastRun != res || st.IndexedActive != 2 || st.Running {
		t.Fatalf("status unexpected: %+v %v", st, err)
	}

	restarted := NewCompiler(f.svc.DB, f.emb, f.index, 0)
	st, err = restarted.Status(ctx)
	if err != nil || st.LastRun == nil {
		t.Fatalf("restarted status should load the persisted run: %+v %v", st, err)
	}
	if st.LastRun.ID != res.ID || st.LastRun.NewEntries != 2 || st.LastRun.Mode != ModeFull {
		t.Fatalf("persisted run unexpected: %+v", st.LastRun)
	}
}

func TestCompiler_CancelledContext(t *testing.T) {
	f := newCompileFixture(t)
	mustCreate(t, f.svc, sharedInput("A", "alpha"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.comp.Compile(ctx, CompileOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n, _ := f.index.Count(context.Background(), vectorindex.Filter{}); n != 0 {
		t.Fatalf("cancelled compile wrote %d points", n)
	}
}

func TestDecide(t *testing.T) {
	e := &domain.ContentEntry{Status: domain.StatusActive, ContentHash: "c", MetadataHash: "m"}
	pt := func(c, m string, active bool) *vectorindex.Point {
		return &vectorindex.Point{Payload: vectorindex.Payload{ContentHash: c, MetadataHash: m, Active: active}}
	}
	cases := []struct {
		name   string
		status domain.Status
		point  *vectorindex.Point
		want   Action
	}{
		{"active no point", domain.StatusActive, nil, ActionNew},
		{"content changed", domain.StatusActive, pt("x", "m", true), ActionReEmbedded},
		{"content and metadata changed", domain.StatusActive, pt("x", "y", true), ActionReEmbedded},
		{"metadata changed", domain.StatusActive, pt("c", "y", true), ActionUpdatedMetadata},
		{"reactivated point", domain.StatusActive, pt("c", "m", false), ActionUpdatedMetadata},
		{"in sync", domain.StatusActive, pt("c", "m", true), ActionUnchanged},
		{"deprecated active point", domain.StatusDeprecated, pt("c", "m", true), ActionSoftDeleted},
		{"deprecated inactive point", domain.StatusDeprecated, pt("c", "m", false), ActionUnchanged},
		{"deprecated no point", domain.StatusDeprecated, nil, ActionUnchanged},
		{"draft no point", domain.StatusDraft, nil, ActionNew},
		{"draft in sync", domain.StatusDraft, pt("c", "m", false), ActionUnchanged},
		{"draft content changed", domain.StatusDraft, pt("x", "m", false), ActionReEmbedded},
		{"active back to draft", domain.StatusDraft, pt("c", "m", true), ActionUpdatedMetadata},
	}
	for _, tc := range cases {
		e.Status = tc.status
		if got := decide(e, tc.point); got != tc.want {
			t.Fatalf("%s: decide = %q; want %q", tc.name, got, tc.want)
		}
	}
}
