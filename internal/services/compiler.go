// Package services – Compiler
//
// This file implements Compiler, which reconciles the content repository with
// the vector index. Each pass compares every entry's content_hash and
// metadata_hash with the values stored in the index payload and only calls
// the embedding provider for entries whose body changed.
//
// Failure isolation: a failed embedding batch is retried entry by entry, and
// whatever still fails is recorded against the affected entries while the
// pass moves on. A failed index listing skips the purge scan only.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jubileesolutions/overlay-backend/internal/domain"
	"github.com/jubileesolutions/overlay-backend/internal/embedding"
	"github.com/jubileesolutions/overlay-backend/internal/observability"
	"github.com/jubileesolutions/overlay-backend/internal/repo"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBatchSize bounds how many entries share one embedding call.
const DefaultBatchSize = 10

// Compile modes.
const (
	ModeFull     = "full"
	ModeTargeted = "targeted"
)

// Action is the outcome of one entry in a compile pass.
type Action string

const (
	ActionNew             Action = "new_entries"
	ActionReEmbedded      Action = "re_embedded"
	ActionUpdatedMetadata Action = "updated_metadata"
	ActionUnchanged       Action = "unchanged"
	ActionSoftDeleted     Action = "soft_deleted"
	ActionPurged          Action = "purged"
	ActionFailed          Action = "failed"
)

// ErrorKind classifies a per-entry compile failure.
type ErrorKind string

const (
	ErrKindEmbedding  ErrorKind = "embedding_provider"
	ErrKindIndexWrite ErrorKind = "index_write"
	ErrKindIndexRead  ErrorKind = "index_read"
	ErrKindNotFound   ErrorKind = "not_found"
)

// ListIDsErrorID stands in for the entry id when listing the index for the
// purge scan fails.
const ListIDsErrorID = "*"

// CompileOptions tunes one pass. A zero BatchSize uses the compiler default.
type CompileOptions struct {
	DryRun    bool
	Verbose   bool
	BatchSize int
}

// EntryError is one entry's failure in a pass.
type EntryError struct {
	EntryID string    `json:"entry_id"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// EntryAction is reported per entry when CompileOptions.Verbose is set.
type EntryAction struct {
	EntryID string `json:"entry_id"`
	Action  Action `json:"action"`
}

// CompileResult summarizes a pass. In a dry run the counts describe what a
// real pass would do.
type CompileResult struct {
	ID              string        `json:"id,omitempty"`
	Mode            string        `json:"mode"`
	DryRun          bool          `json:"dry_run"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	NewEntries      int           `json:"new_entries"`
	ReEmbedded      int           `json:"re_embedded"`
	UpdatedMetadata int           `json:"updated_metadata"`
	Unchanged       int           `json:"unchanged"`
	SoftDeleted     int           `json:"soft_deleted"`
	Purged          int           `json:"purged"`
	Errors          []EntryError  `json:"errors"`
	Actions         []EntryAction `json:"actions,omitempty"`
}

// CompileStatus is the observability view of the compiler.
type CompileStatus struct {
	LastRun       *CompileResult `json:"last_run"`
	Running       bool           `json:"running"`
	IndexedActive int64          `json:"indexed_active"`
}

// Compiler synchronizes content entries into the vector index.
type Compiler struct {
	DB       *gorm.DB
	Embedder embedding.Generator
	Index    vectorindex.Index

	// BatchSize is used when CompileOptions.BatchSize is zero.
	BatchSize int

	// Now is the clock used for run timestamps; tests may replace it.
	Now func() time.Time

	runMu   sync.Mutex // serializes passes
	mu      sync.Mutex
	last    *CompileResult
	running bool
}

// NewCompiler wires a compiler over the repository, embedder and index.
func NewCompiler(db *gorm.DB, emb embedding.Generator, idx vectorindex.Index, batchSize int) *Compiler {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Compiler{DB: db, Embedder: emb, Index: idx, BatchSize: batchSize}
}

func (c *Compiler) tracer() trace.Tracer { return otel.Tracer("services/Compiler") }

func (c *Compiler) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

// Compile runs the full scan: every entry in the repository is reconciled
// and index points whose entry no longer exists are purged.
func (c *Compiler) Compile(ctx context.Context, opts CompileOptions) (*CompileResult, error) {
	ctx, span := c.tracer().Start(ctx, "Compile")
	defer span.End()
	span.SetAttributes(attribute.Bool("compile.dry_run", opts.DryRun))

	c.begin()
	defer c.end()

	entries, err := repo.ListEntries(ctx, c.DB)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, ModeFull, entries, nil, opts)
}

// CompileEntries reconciles only the given ids. An id with no entry but a
// point left in the index has its point purged; an id unknown to both is
// reported as not_found.
func (c *Compiler) CompileEntries(ctx context.Context, ids []string, opts CompileOptions) (*CompileResult, error) {
	ctx, span := c.tracer().Start(ctx, "CompileEntries")
	defer span.End()
	span.SetAttributes(attribute.Int("compile.ids", len(ids)), attribute.Bool("compile.dry_run", opts.DryRun))

	if len(ids) == 0 {
		return nil, invalid("ids", "must not be empty")
	}

	c.begin()
	defer c.end()

	want := uniqueIDs(ids)
	entries, err := repo.ListEntriesByIDs(ctx, c.DB, want)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(entries))
	for i := range entries {
		found[entries[i].ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return c.run(ctx, ModeTargeted, entries, missing, opts)
}

// Status returns the last non-dry-run pass (from memory, else from the
// compile_runs table) and the number of active points in the index.
func (c *Compiler) Status(ctx context.Context) (*CompileStatus, error) {
	ctx, span := c.tracer().Start(ctx, "Status")
	defer span.End()

	c.mu.Lock()
	st := &CompileStatus{LastRun: c.last, Running: c.running}
	c.mu.Unlock()

	if st.LastRun == nil {
		run, err := repo.LatestCompileRun(ctx, c.DB)
		switch {
		case err == nil:
			st.LastRun = resultFromRun(run)
		case errors.Is(err, repo.ErrNotFound):
		default:
			return nil, err
		}
	}

	n, err := c.Index.Count(ctx, vectorindex.Filter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	st.IndexedActive = n
	return st, nil
}

func (c *Compiler) begin() {
	c.runMu.Lock()
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
}

func (c *Compiler) end() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.runMu.Unlock()
}

// pass accumulates one run's outcome.
type pass struct {
	res     *CompileResult
	verbose bool
}

func (p *pass) record(id string, a Action) {
	switch a {
	case ActionNew:
		p.res.NewEntries++
	case ActionReEmbedded:
		p.res.ReEmbedded++
	case ActionUpdatedMetadata:
		p.res.UpdatedMetadata++
	case ActionUnchanged:
		p.res.Unchanged++
	case ActionSoftDeleted:
		p.res.SoftDeleted++
	case ActionPurged:
		p.res.Purged++
	}
	if p.verbose {
		p.res.Actions = append(p.res.Actions, EntryAction{EntryID: id, Action: a})
	}
}

func (p *pass) fail(id string, kind ErrorKind, err error) {
	p.res.Errors = append(p.res.Errors, EntryError{EntryID: id, Kind: kind, Message: err.Error()})
	if p.verbose {
		p.res.Actions = append(p.res.Actions, EntryAction{EntryID: id, Action: ActionFailed})
	}
	log.Warn().Str("entry_id", id).Str("kind", string(kind)).Err(err).Msg("compile entry failed")
}

func (c *Compiler) run(ctx context.Context, mode string, entries []domain.ContentEntry, missing []string, opts CompileOptions) (*CompileResult, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = c.BatchSize
	}
	if size <= 0 {
		size = DefaultBatchSize
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	p := &pass{
		res: &CompileResult{
			Mode:      mode,
			DryRun:    opts.DryRun,
			StartedAt: c.now(),
			Errors:    []EntryError{},
		},
		verbose: opts.Verbose,
	}

	for start := 0; start < len(entries); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		c.batch(ctx, p, entries[start:end], opts.DryRun)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch mode {
	case ModeFull:
		known := make(map[string]struct{}, len(entries))
		for i := range entries {
			known[entries[i].ID] = struct{}{}
		}
		ids, err := c.Index.ListIDs(ctx)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			p.fail(ListIDsErrorID, ErrKindIndexRead, err)
			break
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				c.purge(ctx, p, id, opts.DryRun)
			}
		}
	case ModeTargeted:
		for _, id := range missing {
			pt, err := c.Index.Get(ctx, id)
			switch {
			case err != nil:
				p.fail(id, ErrKindIndexRead, err)
			case pt == nil:
				p.fail(id, ErrKindNotFound, ErrNotFound)
			default:
				c.purge(ctx, p, id, opts.DryRun)
			}
		}
	}

	p.res.FinishedAt = c.now()
	c.finish(ctx, p.res)
	return p.res, nil
}

// batch plans every entry from its index point, then embeds the entries that
// need a vector. Outcomes are recorded in entry order.
func (c *Compiler) batch(ctx context.Context, p *pass, entries []domain.ContentEntry, dryRun bool) {
	points := make([]*vectorindex.Point, len(entries))
	readErrs := make([]error, len(entries))

	var g errgroup.Group
	g.SetLimit(len(entries))
	for i := range entries {
		g.Go(func() error {
			points[i], readErrs[i] = c.Index.Get(ctx, entries[i].ID)
			return nil
		})
	}
	_ = g.Wait()

	actions := make([]Action, len(entries))
	var embed []int
	for i := range entries {
		if readErrs[i] != nil {
			continue
		}
		actions[i] = decide(&entries[i], points[i])
		if actions[i] == ActionNew || actions[i] == ActionReEmbedded {
			embed = append(embed, i)
		}
	}

	vectors := make(map[int][]float32, len(embed))
	embedErrs := make(map[int]error)
	if !dryRun && len(embed) > 0 {
		c.embed(ctx, entries, embed, vectors, embedErrs)
	}

	for i := range entries {
		e := &entries[i]
		if readErrs[i] != nil {
			p.fail(e.ID, ErrKindIndexRead, readErrs[i])
			continue
		}
		if dryRun {
			p.record(e.ID, actions[i])
			continue
		}
		var err error
		switch actions[i] {
		case ActionNew, ActionReEmbedded:
			if eerr := embedErrs[i]; eerr != nil {
				p.fail(e.ID, ErrKindEmbedding, eerr)
				continue
			}
			err = c.Index.Upsert(ctx, vectorindex.Point{ID: e.ID, Vector: vectors[i], Payload: vectorindex.PayloadFor(e)})
		case ActionUpdatedMetadata:
			err = c.Index.SetPayload(ctx, e.ID, vectorindex.PayloadFor(e))
		case ActionSoftDeleted:
			err = c.Index.MarkInactive(ctx, e.ID)
		}
		if err != nil {
			p.fail(e.ID, ErrKindIndexWrite, err)
			continue
		}
		p.record(e.ID, actions[i])
	}
}

// embed fills vectors for entries[embed] with one EmbedBatch call. When the
// batch call fails, each entry is retried alone so the error lands on the
// entries that actually fail.
func (c *Compiler) embed(ctx context.Context, entries []domain.ContentEntry, embed []int, vectors map[int][]float32, errs map[int]error) {
	texts := make([]string, len(embed))
	for j, i := range embed {
		texts[j] = entries[i].Content
	}
	observability.ObserveEmbeddingBatch()
	vecs, err := c.Embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = &embedding.ProviderError{
			Op:    "embed_batch",
			Model: c.Embedder.Model(),
			Err:   fmt.Errorf("got %d vectors for %d inputs", len(vecs), len(texts)),
		}
	}
	if err == nil {
		for j, i := range embed {
			vectors[i] = vecs[j]
		}
		return
	}
	if len(embed) == 1 || ctx.Err() != nil {
		for _, i := range embed {
			errs[i] = err
		}
		return
	}
	log.Warn().Err(err).Int("size", len(embed)).Msg("embedding batch failed; retrying entries one by one")
	for _, i := range embed {
		v, err := c.Embedder.Embed(ctx, entries[i].Content)
		if err != nil {
			errs[i] = err
			continue
		}
		vectors[i] = v
	}
}

// decide applies the per-entry state machine against the stored point.
// Drafts are indexed like active entries but with an inactive payload, so
// activation only rewrites the payload.
func decide(e *domain.ContentEntry, pt *vectorindex.Point) Action {
	if e.Status == domain.StatusDeprecated {
		if pt != nil && pt.Payload.Active {
			return ActionSoftDeleted
		}
		return ActionUnchanged
	}
	switch {
	case pt == nil:
		return ActionNew
	case pt.Payload.ContentHash != e.ContentHash:
		return ActionReEmbedded
	case pt.Payload.MetadataHash != e.MetadataHash || pt.Payload.Active != (e.Status == domain.StatusActive):
		return ActionUpdatedMetadata
	}
	return ActionUnchanged
}

func (c *Compiler) purge(ctx context.Context, p *pass, id string, dryRun bool) {
	if !dryRun {
		if err := c.Index.Delete(ctx, id); err != nil {
			p.fail(id, ErrKindIndexWrite, err)
			return
		}
	}
	p.record(id, ActionPurged)
}

// finish publishes a real pass as the last run and persists it. Dry runs are
// only counted in metrics.
func (c *Compiler) finish(ctx context.Context, res *CompileResult) {
	errKinds := map[string]int{}
	for _, e := range res.Errors {
		errKinds[string(e.Kind)]++
	}
	observability.ObserveCompile(observability.CompileSample{
		Mode:     res.Mode,
		DryRun:   res.DryRun,
		Duration: res.FinishedAt.Sub(res.StartedAt),
		Actions: map[string]int{
			string(ActionNew):             res.NewEntries,
			string(ActionReEmbedded):      res.ReEmbedded,
			string(ActionUpdatedMetadata): res.UpdatedMetadata,
			string(ActionUnchanged):       res.Unchanged,
			string(ActionSoftDeleted):     res.SoftDeleted,
			string(ActionPurged):          res.Purged,
		},
		Errors: errKinds,
	})

	ev := log.Info()
	if len(res.Errors) > 0 {
		ev = log.Warn()
	}
	ev.Str("mode", res.Mode).
		Bool("dry_run", res.DryRun).
		Int("new", res.NewEntries).
		Int("re_embedded", res.ReEmbedded).
		Int("updated_metadata", res.UpdatedMetadata).
		Int("unchanged", res.Unchanged).
		Int("soft_deleted", res.SoftDeleted).
		Int("purged", res.Purged).
		Int("errors", len(res.Errors)).
		Msg("compile finished")

	if res.DryRun {
		return
	}

	run := runFromResult(res)
	if err := repo.CreateCompileRun(ctx, c.DB, run); err != nil {
		log.Error().Err(err).Msg("persist compile run")
	} else {
		res.ID = run.ID
	}

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
}

func runFromResult(res *CompileResult) *domain.CompileRun {
	errs, _ := json.Marshal(res.Errors)
	return &domain.CompileRun{
		ID:              uuid.NewString(),
		Mode:            res.Mode,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		NewEntries:      res.NewEntries,
		ReEmbedded:      res.ReEmbedded,
		UpdatedMetadata: res.UpdatedMetadata,
		Unchanged:       res.Unchanged,
		SoftDeleted:     res.SoftDeleted,
		Purged:          res.Purged,
		ErrorCount:      len(res.Errors),
		Errors:          datatypes.JSON(errs),
	}
}

func resultFromRun(run *domain.CompileRun) *CompileResult {
	res := &CompileResult{
		ID:              run.ID,
		Mode:            run.Mode,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		NewEntries:      run.NewEntries,
		ReEmbedded:      run.ReEmbedded,
		UpdatedMetadata: run.UpdatedMetadata,
		Unchanged:       run.Unchanged,
		SoftDeleted:     run.SoftDeleted,
		Purged:          run.Purged,
		Errors:          []EntryError{},
	}
	if len(run.Errors) > 0 {
		_ = json.Unmarshal(run.Errors, &res.Errors)
	}
	return res
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
