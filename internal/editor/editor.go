// Package editor implements the ordered record editor: a list of records
// mirrored from a row store, one draft at a time, and explicit sort-order
// management. Views observe an Editor and dispatch actions to it; the editor
// knows nothing about rendering.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"digitalroom/internal/blob"
	"digitalroom/internal/notice"
	"digitalroom/pkg/domain"
)

// State is the editor lifecycle state.
type State int

const (
	Browsing State = iota
	Creating
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// DefaultSortGap is added to the largest sort_order for new records.
	DefaultSortGap int64 = 10
	// DefaultSortBaseline is the sort_order of the first record in an empty list.
	DefaultSortBaseline int64 = 10
	// DefaultBucket receives uploads when the schema names none.
	DefaultBucket = "media"
)

// Editor mediates between a view and a row store for one entity.
type Editor struct {
	schema   Schema
	store    domain.RowStore
	blobs    blob.Store
	notifier notice.Notifier
	logger   *zap.Logger
	now      func() time.Time
	gap      int64
	baseline int64

	mu        sync.Mutex
	state     State
	resume    State
	records   []domain.Record
	draft     map[string]any
	draftGen  uint64
	target    *domain.ID
	filters   []domain.Filter
	sortField string
	sortDesc  bool
	inflight  map[Op]int
	loadSeq   uint64
	closed    bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithNotifier routes notices to n.
func WithNotifier(n notice.Notifier) Option {
	return func(e *Editor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBlobStore enables AttachFile.
func WithBlobStore(s blob.Store) Option {
	return func(e *Editor) { e.blobs = s }
}

// WithClock overrides time.Now for notices and upload names.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithSortGap sets the gap between default sort orders and the baseline for
// an empty list.
func WithSortGap(gap, baseline int64) Option {
	return func(e *Editor) {
		if gap > 0 {
			e.gap = gap
		}
		e.baseline = baseline
	}
}

// New returns an editor for schema backed by store.
func New(schema Schema, store domain.RowStore, opts ...Option) (*Editor, error) {
	if err := schema.Check(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("editor %s: nil store", schema.Entity)
	}
	e := &Editor{
		schema:   schema,
		store:    store,
		notifier: notice.Discard,
		logger:   zap.NewNop(),
		now:      time.Now,
		gap:      DefaultSortGap,
		baseline: DefaultSortBaseline,
		inflight: make(map[Op]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("entity", schema.Entity))
	return e, nil
}

// Schema returns the editor's schema.
func (e *Editor) Schema() Schema { return e.schema }

// State reports the editor's position in the edit cycle.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Busy reports whether op is in flight.
func (e *Editor) Busy(op Op) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight[op] > 0
}

// Records returns the loaded list, re-sorted by the local sort when one is
// selected. The result is a copy.
func (e *Editor) Records() []domain.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Record, len(e.records))
	for i, r := range e.records {
		out[i] = r.Clone()
	}
	if e.sortField != "" {
		domain.SortRecords(out, []domain.Order{{Field: e.sortField, Desc: e.sortDesc}})
	}
	return out
}

// Record finds a loaded record by id.
func (e *Editor) Record(id domain.ID) (domain.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findLocked(id)
}

func (e *Editor) findLocked(id domain.ID) (domain.Record, bool) {
	for _, r := range e.records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Record{}, false
}

// Draft returns a copy of the open draft.
func (e *Editor) Draft() (map[string]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return nil, false
	}
	return cloneDraft(e.draft), true
}

// EditTarget returns the id being edited; false in create mode.
func (e *Editor) EditTarget() (domain.ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == nil {
		return "", false
	}
	return *e.target, true
}

// SortState returns the local sort field and direction.
func (e *Editor) SortState() (field string, desc bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortField, e.sortDesc
}

// SortBy selects a local sort field, toggling the direction when the same
// field is selected again. An empty field restores the store order. Never
// reloads and never touches sort_order.
func (e *Editor) SortBy(field string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case field == "":
		e.sortField, e.sortDesc = "", false
	case field == e.sortField:
		e.sortDesc = !e.sortDesc
	default:
		e.sortField, e.sortDesc = field, false
	}
}

// SetFilter adds or replaces an equality filter applied by the next Load.
func (e *Editor) SetFilter(field string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := domain.Normalize(value)
	for i, f := range e.filters {
		if f.Field == field {
			e.filters[i].Value = v
			return
		}
	}
	e.filters = append(e.filters, domain.Filter{Field: field, Value: v})
}

// ClearFilter removes a filter set with SetFilter.
func (e *Editor) ClearFilter(field string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.filters[:0]
	for _, f := range e.filters {
		if f.Field != field {
			out = append(out, f)
		}
	}
	e.filters = out
}

// Filters returns the extra filters set with SetFilter.
func (e *Editor) Filters() []domain.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Filter(nil), e.filters...)
}

// Close detaches the editor. Responses arriving afterwards are discarded and
// further operations return ErrClosed.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *Editor) notify(level notice.Level, msg string, err error) {
	n := notice.Notice{Level: level, Message: msg, At: e.now()}
	if err != nil {
		n.Detail = err.Error()
	}
	e.notifier.Notify(n)
}

// Load replaces the list with the store's rows. Loads are never rejected; a
// load that finishes after a newer one started is discarded. On failure the
// previous list is kept.
func (e *Editor) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.loadSeq++
	seq := e.loadSeq
	e.inflight[OpLoad]++
	q := e.schema.Query(e.filters)
	e.mu.Unlock()

	records, err := e.store.Select(ctx, e.schema.Table, q)

	e.mu.Lock()
	e.inflight[OpLoad]--
	if e.closed || seq != e.loadSeq {
		e.mu.Unlock()
		e.logger.Debug("discarding stale load", zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		e.mu.Unlock()
		e.notify(notice.LevelError, "Failed to load "+e.schema.DisplayName(), err)
		return &RemoteError{Op: OpLoad, Err: err}
	}
	e.records = records
	e.mu.Unlock()
	e.logger.Debug("loaded", zap.Int("count", len(records)))
	return nil
}

// NextSortOrder is max(sort_order)+gap over the loaded list, or the baseline
// when no loaded record carries a sort_order.
func (e *Editor) NextSortOrder() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextSortOrderLocked()
}

func (e *Editor) nextSortOrderLocked() int64 {
	found := false
	var maxOrder int64
	for _, r := range e.records {
		v, ok := r.Values[domain.FieldSortOrder]
		if !ok || v == nil {
			continue
		}
		n, ok := domain.AsInt(v)
		if !ok {
			continue
		}
		if !found || n > maxOrder {
			maxOrder, found = n, true
		}
	}
	if !found {
		return e.baseline
	}
	return maxOrder + e.gap
}

func (e *Editor) openable() error {
	if e.closed {
		return ErrClosed
	}
	if e.state == Submitting {
		return ErrBusy
	}
	return nil
}

// BeginCreate opens a draft with schema defaults and a default sort_order.
// An open draft is discarded.
func (e *Editor) BeginCreate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.openable(); err != nil {
		return err
	}
	draft := make(map[string]any, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		draft[f.Name] = f.initial()
	}
	if e.schema.HasSortOrder() {
		draft[domain.FieldSortOrder] = e.nextSortOrderLocked()
	}
	e.draftGen++
	e.draft, e.target, e.state = draft, nil, Creating
	return nil
}

// BeginEdit opens a draft populated from r. An open draft is discarded.
func (e *Editor) BeginEdit(r domain.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.openable(); err != nil {
		return err
	}
	if r.ID == "" {
		return fmt.Errorf("editor %s: record has no id", e.schema.Entity)
	}
	draft := make(map[string]any, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		draft[f.Name] = f.display(r.Values[f.Name])
	}
	id := r.ID
	e.draftGen++
	e.draft, e.target, e.state = draft, &id, Editing
	return nil
}

// CancelEdit drops the draft and the edit target.
func (e *Editor) CancelEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.openable(); err != nil {
		return err
	}
	e.draft, e.target, e.state = nil, nil, Browsing
	return nil
}

func (e *Editor) draftField(name string) (Field, error) {
	if e.closed {
		return Field{}, ErrClosed
	}
	if e.draft == nil {
		return Field{}, ErrNoDraft
	}
	if e.state == Submitting {
		return Field{}, ErrBusy
	}
	f, ok := e.schema.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f, nil
}

// UpdateDraftField sets a draft value after coercing it to the field kind.
func (e *Editor) UpdateDraftField(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.draftField(name)
	if err != nil {
		return err
	}
	e.draft[name] = f.coerce(value)
	return nil
}

// validateLocked checks required fields and the schema hook, returning the
// payload on success.
func (e *Editor) validateLocked() (map[string]any, error) {
	for _, f := range e.schema.Fields {
		if f.Required && f.isBlank(e.draft[f.Name]) {
			return nil, &ValidationError{Field: f.Name, Reason: "is required"}
		}
	}
	payload := make(map[string]any, len(e.schema.Fields))
	for _, f := range e.schema.Fields {
		payload[f.Name] = f.persist(e.draft[f.Name])
	}
	if e.schema.Validate != nil {
		if err := e.schema.Validate(payload); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return nil, ve
			}
			return nil, &ValidationError{Reason: err.Error()}
		}
	}
	return payload, nil
}

// Save validates the draft and inserts or updates it. On success the draft
// closes and the list reloads; the reload error, if any, is returned with the
// saved record. On failure the draft and edit target are kept for a retry.
func (e *Editor) Save(ctx context.Context) (domain.Record, error) { //nolint:cyclop
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.Record{}, ErrClosed
	}
	if e.inflight[OpSave] > 0 || e.state == Submitting {
		e.mu.Unlock()
		return domain.Record{}, ErrBusy
	}
	if e.draft == nil {
		e.mu.Unlock()
		return domain.Record{}, ErrNoDraft
	}
	payload, err := e.validateLocked()
	if err != nil {
		e.mu.Unlock()
		e.notify(notice.LevelWarning, "Cannot save "+e.schema.DisplayName(), err)
		return domain.Record{}, err
	}
	var target *domain.ID
	if e.target != nil {
		id := *e.target
		target = &id
	}
	e.resume = e.state
	e.state = Submitting
	e.inflight[OpSave]++
	e.mu.Unlock()

	var saved domain.Record
	if target != nil {
		saved, err = e.store.Update(ctx, e.schema.Table, *target, payload)
	} else {
		saved, err = e.store.Insert(ctx, e.schema.Table, payload)
	}

	e.mu.Lock()
	e.inflight[OpSave]--
	if e.closed {
		e.mu.Unlock()
		return saved, err
	}
	if err != nil {
		e.state = e.resume
		e.mu.Unlock()
		e.notify(notice.LevelError, "Failed to save "+e.schema.DisplayName(), err)
		return domain.Record{}, &RemoteError{Op: OpSave, Err: err}
	}
	e.draft, e.target, e.state = nil, nil, Browsing
	e.mu.Unlock()

	verb := "Created"
	if target != nil {
		verb = "Updated"
	}
	e.notify(notice.LevelSuccess, fmt.Sprintf("%s %s %q", verb, e.schema.DisplayName(), e.schema.Title(saved)), nil)
	e.logger.Debug("saved", zap.String("id", string(saved.ID)), zap.Bool("update", target != nil))
	return saved, e.Load(ctx)
}

// Delete removes a record after confirm approves it. Deleting the record
// being edited first falls back to Browsing; deleting any other record while
// a draft is open fails with ErrDraftOpen. On failure the previous draft and
// edit target are restored.
func (e *Editor) Delete(ctx context.Context, id domain.ID, confirm Confirmer) error { //nolint:cyclop
	e.mu.Lock()
	if err := e.deletableLocked(id); err != nil {
		e.mu.Unlock()
		if errors.Is(err, ErrDraftOpen) {
			e.notify(notice.LevelWarning, "Finish or cancel the open edit before deleting", nil)
		}
		return err
	}
	rec, ok := e.findLocked(id)
	if !ok {
		rec = domain.Record{ID: id}
	}
	e.mu.Unlock()

	if confirm == nil || !confirm.Confirm(rec) {
		e.notify(notice.LevelInfo, "Delete cancelled", nil)
		return ErrNotConfirmed
	}

	e.mu.Lock()
	if err := e.deletableLocked(id); err != nil {
		e.mu.Unlock()
		return err
	}
	prevDraft, prevTarget, prevState := e.draft, e.target, e.state
	if e.target != nil && *e.target == id {
		e.draft, e.target, e.state = nil, nil, Browsing
	}
	e.inflight[OpDelete]++
	e.mu.Unlock()

	err := e.store.Delete(ctx, e.schema.Table, id)

	e.mu.Lock()
	e.inflight[OpDelete]--
	if e.closed {
		e.mu.Unlock()
		return err
	}
	if err != nil {
		if e.draft == nil && e.state == Browsing {
			e.draft, e.target, e.state = prevDraft, prevTarget, prevState
		}
		e.mu.Unlock()
		e.notify(notice.LevelError, "Failed to delete "+e.schema.DisplayName(), err)
		return &RemoteError{Op: OpDelete, Err: err}
	}
	e.mu.Unlock()

	e.notify(notice.LevelSuccess, fmt.Sprintf("Deleted %s %q", e.schema.DisplayName(), e.schema.Title(rec)), nil)
	e.logger.Debug("deleted", zap.String("id", string(id)))
	return e.Load(ctx)
}

func (e *Editor) deletableLocked(id domain.ID) error {
	if e.closed {
		return ErrClosed
	}
	if e.inflight[OpDelete] > 0 || e.state == Submitting {
		return ErrBusy
	}
	if e.draft != nil && (e.target == nil || *e.target != id) {
		return ErrDraftOpen
	}
	return nil
}

func (e *Editor) listField(name string) (Field, error) {
	f, err := e.draftField(name)
	if err != nil {
		return Field{}, err
	}
	if f.Kind != KindList && f.Kind != KindImages {
		return Field{}, fmt.Errorf("editor: field %s is not a collection", name)
	}
	return f, nil
}

func (e *Editor) itemCount(f Field) int {
	switch v := e.draft[f.Name].(type) {
	case []map[string]any:
		return len(v)
	case []string:
		return len(v)
	}
	return 0
}

// AppendItem adds a blank sub-record at the end of a collection field.
func (e *Editor) AppendItem(field string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.listField(field)
	if err != nil {
		return err
	}
	switch v := e.draft[field].(type) {
	case []map[string]any:
		e.draft[field] = append(v, f.blankItem())
	case []string:
		e.draft[field] = append(v, "")
	default:
		if f.Kind == KindList {
			e.draft[field] = []map[string]any{f.blankItem()}
		} else {
			e.draft[field] = []string{""}
		}
	}
	return nil
}

// RemoveItem deletes the sub-record at index.
func (e *Editor) RemoveItem(field string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.listField(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= e.itemCount(f) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexRange, field, index)
	}
	switch v := e.draft[field].(type) {
	case []map[string]any:
		e.draft[field] = append(append([]map[string]any{}, v[:index]...), v[index+1:]...)
	case []string:
		e.draft[field] = append(append([]string{}, v[:index]...), v[index+1:]...)
	}
	return nil
}

// UpdateItemField sets sub-field sub of the item at index. Image lists ignore
// sub and replace the URL.
func (e *Editor) UpdateItemField(field string, index int, sub string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.listField(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= e.itemCount(f) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexRange, field, index)
	}
	switch v := e.draft[field].(type) {
	case []map[string]any:
		var sf Field
		found := false
		for _, candidate := range f.SubFields {
			if candidate.Name == sub {
				sf, found = candidate, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, field, sub)
		}
		v[index][sub] = sf.coerce(value)
	case []string:
		v[index] = asString(value)
	}
	return nil
}

// PromoteItem moves the item at index to the front ("set cover").
func (e *Editor) PromoteItem(field string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.listField(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= e.itemCount(f) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexRange, field, index)
	}
	switch v := e.draft[field].(type) {
	case []map[string]any:
		e.draft[field] = Promote(v, index)
	case []string:
		e.draft[field] = Promote(v, index)
	}
	return nil
}

// AttachFile uploads r under a generated name and binds the public URL into
// an image field of the draft: KindImage is replaced, KindImages appended.
// On failure the draft is unchanged.
func (e *Editor) AttachFile(ctx context.Context, field, filename string, r io.Reader, contentType string) (string, error) { //nolint:cyclop
	e.mu.Lock()
	f, err := e.draftField(field)
	if err == nil && f.Kind != KindImage && f.Kind != KindImages {
		err = fmt.Errorf("editor: field %s does not hold images", field)
	}
	if err == nil && e.blobs == nil {
		err = ErrNoBlobStore
	}
	if err == nil && e.inflight[OpUpload] > 0 {
		err = ErrBusy
	}
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	e.inflight[OpUpload]++
	gen := e.draftGen
	e.mu.Unlock()

	bucket := e.schema.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	objectPath := path.Join(e.schema.Entity, blob.ObjectName(filename, e.now()))
	_, err = e.blobs.Upload(ctx, bucket, objectPath, r, blob.UploadOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"original-name": path.Base(filename)},
	})

	e.mu.Lock()
	e.inflight[OpUpload]--
	if e.closed {
		e.mu.Unlock()
		return "", ErrClosed
	}
	if err != nil {
		e.mu.Unlock()
		e.notify(notice.LevelError, "Upload failed", err)
		return "", &RemoteError{Op: OpUpload, Err: err}
	}
	url := e.blobs.PublicURL(bucket, objectPath)
	if e.draft == nil || e.draftGen != gen {
		e.mu.Unlock()
		e.notify(notice.LevelWarning, "Upload finished after the form closed", nil)
		return url, ErrNoDraft
	}
	if f.Kind == KindImage {
		e.draft[field] = url
	} else {
		urls, _ := e.draft[field].([]string)
		e.draft[field] = append(append([]string{}, urls...), url)
	}
	e.mu.Unlock()
	e.notify(notice.LevelSuccess, "Uploaded "+path.Base(filename), nil)
	return url, nil
}
