package qualify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StateStore loads per-scanner channel state and project context.
type StateStore interface {
	ChannelState(ctx context.Context, scannerID int64) (ChannelState, error)
	ProjectContext(ctx context.Context, scannerID int64) (Project, error)
}

// Catalog resolves video ids to metadata records.
type Catalog interface {
	// ListByIDs resolves queued ids to snippet records. Unresolvable
	// ids are silently absent from the result, never an error.
	ListByIDs(ctx context.Context, ids []string) ([]PartialVideo, error)
	// GetDetails fetches statistics and duration for the given ids,
	// batching upstream calls as needed. Missing ids are absent.
	GetDetails(ctx context.Context, ids []string) ([]DetailedVideo, error)
	// RecentUploads lists channel uploads published after the cutoff,
	// minus the excluded ids. Legacy date-window discovery only.
	RecentUploads(ctx context.Context, channelID string, publishedAfter time.Time, exclude []string) ([]PartialVideo, error)
}

// Transcripts fetches transcripts best-effort: every requested id is
// present in the returned map, with "" marking any failure.
type Transcripts interface {
	GetBatch(ctx context.Context, ids []string) map[string]string
}

// Judge runs the two relevance passes. Both return verdicts keyed by
// video id and may fail on transport errors. FullJudge signals an
// unparsable upstream response with ErrUnparsableVerdicts so the
// pipeline can degrade instead of failing the run.
type Judge interface {
	PreFilter(ctx context.Context, videos []Video, project Project) (map[string]Verdict, error)
	FullJudge(ctx context.Context, videos []Video, project Project) (map[string]Verdict, error)
}

// ErrUnparsableVerdicts marks a full-judgment response that could not
// be decoded. The run still succeeds with pre-filter verdicts only.
var ErrUnparsableVerdicts = errors.New("judge response could not be parsed")

// Discovery modes.
const (
	DiscoveryQueue = "queue" // authoritative work queue of ids (default)
	DiscoveryDate  = "date"  // legacy published-after window on channel uploads
)

// Judgment modes.
const (
	JudgmentTwoStage = "two-stage" // metadata pre-filter, then full judgment (default)
	JudgmentSingle   = "single"    // full judgment on everything
)

// Config holds the run-shaping knobs. Collaborator clients are injected
// separately through New.
type Config struct {
	DiscoveryMode   string
	JudgmentMode    string
	DiscoveryWindow time.Duration // date mode: how far back to look
}

func (c Config) withDefaults() Config {
	if c.DiscoveryMode == "" {
		c.DiscoveryMode = DiscoveryQueue
	}
	if c.JudgmentMode == "" {
		c.JudgmentMode = JudgmentTwoStage
	}
	if c.DiscoveryWindow <= 0 {
		c.DiscoveryWindow = 24 * time.Hour
	}
	return c
}

// Qualifier runs the staged qualification pipeline. It is stateless
// between runs: all per-run accumulators live in the run value, and the
// injected clients are long-lived and safe for concurrent use.
type Qualifier struct {
	state       StateStore
	catalog     Catalog
	transcripts Transcripts
	judge       Judge
	cfg         Config
}

func New(state StateStore, catalog Catalog, transcripts Transcripts, judge Judge, cfg Config) *Qualifier {
	return &Qualifier{
		state:       state,
		catalog:     catalog,
		transcripts: transcripts,
		judge:       judge,
		cfg:         cfg.withDefaults(),
	}
}

// run accumulates the result of one qualification pass. Owned by a
// single goroutine; never shared across runs.
type run struct {
	scannerID int64
	start     time.Time
	stats     Stats
	warnings  []string
	verdicts  map[string]Verdict
	order     []string // candidate ids in discovery order
}

func (r *run) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	slog.Warn(msg, slog.Int64("scanner_id", r.scannerID))
}

// finish builds the terminal result. Stats and warnings accumulated so
// far are always carried, on failure as much as on success.
func (r *run) finish(success bool, errMsg string) *Result {
	qualified := make([]string, 0)
	for _, id := range r.order {
		if v, ok := r.verdicts[id]; ok && v.Qualified() {
			qualified = append(qualified, id)
		}
	}
	r.stats.VideosQualified = len(qualified)
	if r.warnings == nil {
		r.warnings = []string{}
	}
	if !success {
		IncrRunsFailed()
	}
	return &Result{
		ScannerID:            r.scannerID,
		QualifiedIDs:         qualified,
		QualifiedCSV:         LegacyCSV(r.order, r.verdicts),
		Verdicts:             r.verdicts,
		Records:              BuildRecords(r.order, r.verdicts, time.Now()),
		TotalAnalyzed:        r.stats.VideosAnalyzed,
		ExecutionTimeSeconds: time.Since(r.start).Seconds(),
		Success:              success,
		Error:                errMsg,
		Warnings:             r.warnings,
		Stats:                r.stats,
	}
}

func (r *run) fail(stage string, err error) *Result {
	slog.Error("qualification failed",
		slog.Int64("scanner_id", r.scannerID),
		slog.String("stage", stage),
		slog.Any("error", err))
	return r.finish(false, fmt.Sprintf("%s: %v", stage, err))
}

// Qualify runs the full pipeline for one scanner. The returned error is
// non-nil only for invalid input rejected before any upstream call; all
// other failures are reported inside the Result with Success=false.
func (q *Qualifier) Qualify(ctx context.Context, scannerID int64) (*Result, error) {
	if err := ValidateScannerID(scannerID); err != nil {
		return nil, err
	}
	IncrRunsStarted()
	r := &run{
		scannerID: scannerID,
		start:     time.Now(),
		verdicts:  make(map[string]Verdict),
	}
	slog.Info("qualification started",
		slog.Int64("scanner_id", scannerID),
		slog.String("discovery", q.cfg.DiscoveryMode),
		slog.String("judgment", q.cfg.JudgmentMode))

	// Channel state and project context are independent reads; fetch
	// them concurrently.
	state, project, err := q.fetchState(ctx, scannerID)
	if err != nil {
		return r.fail("fetch scanner state", err), nil
	}
	for _, w := range ProjectWarnings(project) {
		r.warn("%s", w)
	}

	partials, done := q.discover(ctx, r, state)
	if done != nil {
		return done, nil
	}
	r.stats.VideosFound = len(partials)
	if len(partials) == 0 {
		r.warn("no candidate videos to analyze")
		return r.finish(true, ""), nil
	}

	ids := make([]string, 0, len(partials))
	for _, p := range partials {
		ids = append(ids, p.ID)
	}
	r.order = ids

	details, err := q.catalog.GetDetails(ctx, ids)
	if err != nil {
		return r.fail("fetch video details", err), nil
	}
	candidates := MergeVideos(partials, details, nil)
	if len(candidates) == 0 {
		return r.fail("enrich metadata", errors.New("no videos survived the metadata merge")), nil
	}
	if len(candidates) < len(partials) {
		r.warn("%d of %d candidates had no detail record and were dropped", len(partials)-len(candidates), len(partials))
		r.order = videoIDs(candidates)
	}
	r.stats.VideosAnalyzed = len(candidates)
	slog.Info("candidates enriched",
		slog.Int64("scanner_id", scannerID),
		slog.Int("count", len(candidates)))

	approved := candidates
	if q.cfg.JudgmentMode == JudgmentTwoStage {
		approved, done = q.preFilter(ctx, r, candidates, project)
		if done != nil {
			return done, nil
		}
	}

	transcripts := q.fetchTranscripts(ctx, r, approved)

	full := MergeVideos(filterPartials(partials, approved), details, transcripts)
	verdicts, err := q.judge.FullJudge(ctx, full, project)
	if err != nil {
		if errors.Is(err, ErrUnparsableVerdicts) {
			r.warn("full judgment response unparsable; keeping pre-filter verdicts only")
			return r.finish(true, ""), nil
		}
		return r.fail("full judgment", err), nil
	}

	submitted := make(map[string]bool, len(full))
	for _, v := range full {
		submitted[v.ID] = true
	}
	for id, v := range verdicts {
		if !submitted[id] {
			// Ids the judge invented are dropped; they would poison
			// the queue downstream.
			slog.Warn("judge returned verdict for unsubmitted id",
				slog.Int64("scanner_id", scannerID),
				slog.String("video_id", id))
			continue
		}
		r.verdicts[id] = v
	}

	if r.stats.VideosAnalyzed > 0 && countQualified(r.verdicts) == 0 {
		r.warn("all %d analyzed videos were rejected", r.stats.VideosAnalyzed)
	}
	res := r.finish(true, "")
	slog.Info("qualification finished",
		slog.Int64("scanner_id", scannerID),
		slog.Int("analyzed", res.TotalAnalyzed),
		slog.Int("qualified", len(res.QualifiedIDs)),
		slog.Float64("elapsed_s", res.ExecutionTimeSeconds))
	return res, nil
}

// fetchState loads channel state and project context in parallel.
func (q *Qualifier) fetchState(ctx context.Context, scannerID int64) (ChannelState, Project, error) {
	type stateOut struct {
		state ChannelState
		err   error
	}
	type projOut struct {
		project Project
		err     error
	}
	stateCh := make(chan stateOut, 1)
	projCh := make(chan projOut, 1)
	go func() {
		s, err := q.state.ChannelState(ctx, scannerID)
		stateCh <- stateOut{s, err}
	}()
	go func() {
		p, err := q.state.ProjectContext(ctx, scannerID)
		projCh <- projOut{p, err}
	}()
	so := <-stateCh
	po := <-projCh
	if so.err != nil {
		return ChannelState{}, Project{}, so.err
	}
	if po.err != nil {
		return ChannelState{}, Project{}, po.err
	}
	return so.state, po.project, nil
}

// discover produces the candidate list. A non-nil second return is a
// terminal result (early exit or failure) and ends the run.
func (q *Qualifier) discover(ctx context.Context, r *run, state ChannelState) ([]PartialVideo, *Result) {
	if q.cfg.DiscoveryMode == DiscoveryDate {
		cutoff := time.Now().Add(-q.cfg.DiscoveryWindow)
		partials, err := q.catalog.RecentUploads(ctx, state.ChannelID, cutoff, state.ExcludedIDs)
		if err != nil {
			return nil, r.fail("discover recent uploads", err)
		}
		return partials, nil
	}

	ids, dropped := FilterVideoIDs(state.QueuedIDs)
	if len(dropped) > 0 {
		r.warn("dropped %d malformed video ids from the work queue", len(dropped))
	}
	if len(ids) == 0 {
		// Empty queue is a normal terminal state: success, no upstream
		// calls, zeroed stats.
		r.warn("work queue is empty; nothing to analyze")
		return nil, r.finish(true, "")
	}
	partials, err := q.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return nil, r.fail("resolve queued videos", err)
	}
	if len(partials) == 0 {
		r.warn("none of the %d queued videos could be resolved", len(ids))
		return nil, r.finish(true, "")
	}
	if len(partials) < len(ids) {
		r.warn("resolved %d of %d queued videos", len(partials), len(ids))
	}
	return partials, nil
}

// preFilter runs the cheap metadata pass and partitions the candidates.
// A non-nil second return ends the run.
func (q *Qualifier) preFilter(ctx context.Context, r *run, candidates []Video, project Project) ([]Video, *Result) {
	verdicts, err := q.judge.PreFilter(ctx, candidates, project)
	if err != nil {
		return nil, r.fail("pre-filter", err)
	}
	var approved []Video
	for _, v := range candidates {
		verdict, ok := verdicts[v.ID]
		if !ok {
			// Missing from the response means the judge had no
			// objection; let it through.
			verdict = Verdict{Status: StatusPass, Stage: StagePreFilter}
		}
		if verdict.Status == StatusRejected {
			r.verdicts[v.ID] = verdict
			r.stats.Stage1Rejected++
			r.stats.TranscriptsSkipped++
			continue
		}
		approved = append(approved, v)
	}
	slog.Info("pre-filter done",
		slog.Int64("scanner_id", r.scannerID),
		slog.Int("passed", len(approved)),
		slog.Int("rejected", r.stats.Stage1Rejected))
	if len(approved) == 0 {
		r.warn("all %d candidates rejected at pre-filter", len(candidates))
		return nil, r.finish(true, "")
	}
	return approved, nil
}

// fetchTranscripts pulls transcripts for the approved candidates only
// and tallies hit/miss counters. Per-id failures surface as "".
func (q *Qualifier) fetchTranscripts(ctx context.Context, r *run, approved []Video) map[string]string {
	transcripts := q.transcripts.GetBatch(ctx, videoIDs(approved))
	for _, v := range approved {
		if transcripts[v.ID] != "" {
			r.stats.VideosWithTranscript++
		} else {
			r.stats.VideosWithoutTranscript++
		}
	}
	if r.stats.VideosWithTranscript == 0 && len(approved) > 0 {
		r.warn("no transcripts available for any of the %d candidates; judging on metadata only", len(approved))
	}
	return transcripts
}

func videoIDs(videos []Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}

func filterPartials(partials []PartialVideo, keep []Video) []PartialVideo {
	keepSet := make(map[string]bool, len(keep))
	for _, v := range keep {
		keepSet[v.ID] = true
	}
	out := make([]PartialVideo, 0, len(keep))
	for _, p := range partials {
		if keepSet[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func countQualified(verdicts map[string]Verdict) int {
	n := 0
	for _, v := range verdicts {
		if v.Qualified() {
			n++
		}
	}
	return n
}
