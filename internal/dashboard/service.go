package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"flujo/internal/cache"
	"flujo/internal/core"
	"flujo/internal/dataset"
	"flujo/internal/debounce"
	"flujo/internal/filter"
	"flujo/internal/ingest"
	"flujo/internal/log"
	"flujo/internal/storage"
)

// File formats accepted by Import and Export.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ImportMode selects whether an import replaces or extends the collection.
type ImportMode string

const (
	ModeReplace ImportMode = "replace"
	ModeAppend  ImportMode = "append"
)

var ErrUnknownFormat = errors.New("unknown file format")

// Notifier is told about every new collection version.
type Notifier interface {
	PublishDatasetChanged(ctx context.Context, version uint64, rows int, operation string) error
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Options       Options
	Mapping       ingest.FieldMapping
	Snapshots     storage.SnapshotStore
	Notifier      Notifier
	Logger        *log.Logger
	CacheSize     int
	CacheTTL      time.Duration
	AutosaveDelay time.Duration
}

// Service owns the session collection and serves reports over it.
type Service struct {
	store     *dataset.Store
	opts      Options
	mapping   ingest.FieldMapping
	snapshots storage.SnapshotStore
	notifier  Notifier
	logger    *log.Logger
	reports   *cache.LRUCache[Report]
	group     singleflight.Group
	autosave  *debounce.Debouncer

	mu        sync.Mutex
	pendingOp string

	// saveMu serializes snapshot writes and deletes. saved is the last
	// collection version written or cleared; older versions are never written.
	saveMu sync.Mutex
	saved  uint64
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.Options.Types == (core.TypeSet{}) {
		cfg.Options.Types = core.DefaultTypes()
	}
	if len(cfg.Mapping.Columns) == 0 {
		cfg.Mapping = ingest.CashFlowMapping()
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = storage.NewMemoryStore()
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 64
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	s := &Service{
		store:     dataset.NewStore(cfg.Mapping.Parser, cfg.Mapping.Placeholders),
		opts:      cfg.Options,
		mapping:   cfg.Mapping,
		snapshots: cfg.Snapshots,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger.WithComponent(log.ComponentDashboard),
		reports:   cache.NewLRUCache[Report](cfg.CacheSize, cfg.CacheTTL),
	}
	s.autosave = debounce.New(cfg.AutosaveDelay, s.save)
	return s
}

// Reports exposes the report cache for periodic cleanup.
func (s *Service) Reports() *cache.LRUCache[Report] {
	return s.reports
}

// Restore loads the persisted snapshot into the collection.
func (s *Service) Restore(ctx context.Context) error {
	rows, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	version := s.store.Replace(rows)
	s.saveMu.Lock()
	s.saved = version
	s.saveMu.Unlock()
	s.logger.InfoContext(ctx, "Snapshot restored", log.FieldRows, len(rows), log.FieldDatasetVersion, version)
	return nil
}

// Report computes the dashboard for state. Results are cached per
// collection version and concurrent identical requests share one run.
func (s *Service) Report(ctx context.Context, state State) (Report, error) {
	rows, version := s.store.Snapshot()
	key, err := reportKey(version, state)
	if err != nil {
		return Report{}, err
	}
	if r, ok := s.reports.Get(key); ok {
		s.logger.DebugContext(ctx, "Report served from cache", log.FieldDatasetVersion, version, log.FieldCacheHit, true)
		return r, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		start := time.Now()
		r := Compute(rows, state, s.opts)
		s.reports.Set(key, r)
		s.logger.DebugContext(ctx, "Report computed",
			log.FieldDatasetVersion, version,
			log.FieldRows, len(rows),
			log.FieldDuration, time.Since(start).Milliseconds())
		return r, nil
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func reportKey(version uint64, state State) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return strconv.FormatUint(version, 10) + ":" + string(data), nil
}

// Meta lists what the filter controls offer.
type Meta struct {
	Version  uint64              `json:"version"`
	Rows     int                 `json:"rows"`
	Axis     []core.PeriodKey    `json:"axis"`
	Current  core.PeriodKey      `json:"current"`
	Entities []string            `json:"entities"`
	Values   map[string][]string `json:"values"`
	Types    core.TypeSet        `json:"types"`
	Mapping  string              `json:"mapping"`
}

func (s *Service) Meta() Meta {
	rows, version := s.store.Snapshot()
	axis := s.opts.axis(rows)
	m := Meta{
		Version:  version,
		Rows:     len(rows),
		Axis:     axis,
		Current:  DefaultCurrent(axis, s.now()),
		Entities: dataset.UniqueValues(rows, core.FieldEntity),
		Values:   map[string][]string{},
		Types:    s.opts.Types,
		Mapping:  s.mapping.Name,
	}
	for _, f := range core.Fields {
		if f == core.FieldDetail {
			continue
		}
		m.Values[string(f)] = dataset.UniqueValues(rows, f)
	}
	return m
}

func (s *Service) now() time.Time {
	if s.opts.Now != nil {
		return s.opts.Now()
	}
	return time.Now()
}

// DefaultState is the package default with the configured Pareto
// threshold.
func (s *Service) DefaultState() State {
	st := DefaultState()
	if s.opts.ParetoThreshold.IsPositive() {
		st.ParetoThreshold = s.opts.ParetoThreshold
	}
	return st
}

// ParseState decodes a JSON state over DefaultState.
func (s *Service) ParseState(data []byte) (State, error) {
	return ParseStateOver(s.DefaultState(), data)
}

// Movements returns one page of the movement listing for state.DB.
func (s *Service) Movements(state State) dataset.Page {
	rows := filter.Apply(s.store.Rows(), state.DBCriteria())
	return dataset.Paginate(rows, state.DB.Page, state.DB.Size)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Encoding string `json:"encoding,omitempty"`
	Version  uint64 `json:"version"`
	Rows     int    `json:"rows"`
}

// Import reads a CSV or XLSX upload. With no valid row the collection is
// left untouched and ingest.ErrNoValidRows is returned.
func (s *Service) Import(ctx context.Context, data []byte, format string, mode ImportMode) (ImportResult, error) {
	var (
		res ingest.Result
		err error
	)
	switch format {
	case FormatCSV, "":
		format = FormatCSV
		res, err = ingest.ImportCSV(data, s.mapping)
	case FormatXLSX:
		res, err = ingest.ImportXLSX(data, s.mapping, "")
	default:
		return ImportResult{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return ImportResult{Rejected: res.Rejected, Encoding: res.Encoding}, err
	}
	return s.apply(ctx, format, res, mode)
}

// ImportTable imports rows already split into cells, first row headers.
func (s *Service) ImportTable(ctx context.Context, source string, table [][]string, mode ImportMode) (ImportResult, error) {
	res := s.mapping.NormalizeAll(ingest.FromTable(table))
	if res.Accepted() == 0 {
		return ImportResult{Rejected: res.Rejected}, ingest.ErrNoValidRows
	}
	return s.apply(ctx, source, res, mode)
}

func (s *Service) apply(ctx context.Context, source string, res ingest.Result, mode ImportMode) (ImportResult, error) {
	var version uint64
	if mode == ModeAppend {
		if _, err := s.store.Append(res.Movements...); err != nil {
			return ImportResult{}, err
		}
		version = s.store.Version()
	} else {
		version = s.store.Replace(res.Movements)
	}
	log.NewStructuredLogger(s.logger).LogImport(ctx, source, res.Encoding, res.Accepted(), res.Rejected, version)
	s.changed(ctx, log.OpImport)
	return ImportResult{
		Accepted: res.Accepted(),
		Rejected: res.Rejected,
		Encoding: res.Encoding,
		Version:  version,
		Rows:     s.store.Len(),
	}, nil
}

// Append adds new movements.
func (s *Service) Append(ctx context.Context, rows ...core.Movement) ([]core.Movement, error) {
	added, err := s.store.Append(rows...)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, log.OpAppend)
	return added, nil
}

// Update edits one movement.
func (s *Service) Update(ctx context.Context, id string, p dataset.Patch) (core.Movement, error) {
	m, err := s.store.Update(id, p)
	if err != nil {
		return core.Movement{}, err
	}
	s.changed(ctx, log.OpUpdate)
	return m, nil
}

// BulkUpdate applies p to every listed movement.
func (s *Service) BulkUpdate(ctx context.Context, ids []string, p dataset.Patch) (int, error) {
	n, err := s.store.BulkUpdate(ids, p)
	if err != nil || n == 0 {
		return n, err
	}
	s.changed(ctx, log.OpUpdate)
	return n, nil
}

// Clear empties the collection and deletes the snapshot right away. A
// pending autosave is dropped and one already writing finishes first.
func (s *Service) Clear(ctx context.Context) error {
	s.saveMu.Lock()
	s.autosave.Cancel()
	s.store.Clear()
	s.reports.Purge()
	s.mu.Lock()
	s.pendingOp = ""
	s.mu.Unlock()
	err := s.snapshots.Clear(ctx)
	if err == nil {
		s.saved = s.store.Version()
	}
	s.saveMu.Unlock()
	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	s.notify(ctx, log.OpClear)
	return nil
}

// Export writes the rows chosen by SelectForExport for state.DB.
func (s *Service) Export(w io.Writer, format string, state State) (dataset.ExportSource, int, error) {
	all := s.store.Rows()
	filtered := filter.Apply(all, state.DBCriteria())
	rows, src := dataset.SelectForExport(all, filtered, state.DB.Selected)

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV, "":
		err = ingest.WriteCSV(&buf, s.mapping, rows)
	case FormatXLSX:
		err = ingest.WriteXLSX(&buf, s.mapping, rows)
	default:
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return "", 0, fmt.Errorf("export %s: %w", format, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return "", 0, err
	}
	return src, len(rows), nil
}

// Mapping is the field mapping used for imports and exports.
func (s *Service) Mapping() ingest.FieldMapping {
	return s.mapping
}

// Rows returns the current collection.
func (s *Service) Rows() []core.Movement {
	return s.store.Rows()
}

// Version is the current collection version.
func (s *Service) Version() uint64 {
	return s.store.Version()
}

// Flush writes any pending autosave now.
func (s *Service) Flush() {
	s.autosave.Flush()
}

// Close writes any pending autosave and stops saving.
func (s *Service) Close() {
	s.autosave.Stop()
}

// changed schedules the autosave. Subscribers hear about the change once
// the snapshot holding it is written.
func (s *Service) changed(ctx context.Context, op string) {
	s.reports.Purge()
	s.mu.Lock()
	s.pendingOp = op
	s.mu.Unlock()
	s.autosave.Trigger()
}

func (s *Service) notify(ctx context.Context, op string) {
	if s.notifier == nil {
		return
	}
	rows, version := s.store.Snapshot()
	if err := s.notifier.PublishDatasetChanged(ctx, version, len(rows), op); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish dataset change", log.FieldError, err, log.FieldOperation, op)
	}
}

func (s *Service) save() {
	ctx := context.Background()
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	rows, version := s.store.Snapshot()
	if version <= s.saved {
		s.logger.DebugContext(ctx, "Snapshot up to date", log.FieldDatasetVersion, version)
		return
	}
	if err := s.snapshots.Save(ctx, rows); err != nil {
		log.NewStructuredLogger(s.logger).LogError(ctx, "Autosave failed", err, log.ComponentStorage, log.OpSave,
			log.NewFields().WithDataset(version, len(rows)))
		return
	}
	s.saved = version
	s.logger.DebugContext(ctx, "Snapshot saved", log.FieldDatasetVersion, version, log.FieldRows, len(rows))

	s.mu.Lock()
	op := s.pendingOp
	s.pendingOp = ""
	s.mu.Unlock()
	if op == "" {
		op = log.OpSave
	}
	s.notify(ctx, op)
}
