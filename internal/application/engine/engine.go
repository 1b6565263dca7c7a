// Package engine is the recruitment case workflow engine. It sequences the
// fifteen stages of a case, exposes the named actions operators perform on
// each stage and builds the per-stage read projections.
//
// Every mutating action runs under a per-case lock, a bounded store timeout
// and a single store transaction. Validation and precondition failures leave
// stored state unchanged.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/approval"
	"github.com/garyjia/recruitment-engine/internal/application/dispatcher"
	"github.com/garyjia/recruitment-engine/internal/application/funnel"
	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Sequence kinds used for document numbers
const (
	SequenceCase     = "case"
	SequenceReport   = "report"
	SequenceOffer    = "offer"
	SequenceContract = "contract"
)

// Config holds the defaults and thresholds the engine applies
type Config struct {
	// ShortlistWeights seed a shortlisting record created without weights
	ShortlistWeights      scoring.ShortlistWeights
	ShortlistPassingScore float64
	// TestPassingMarks seeds a written test created without passing marks
	TestPassingMarks float64
	PriorWeight      float64
	InterviewWeight  float64
	Rules            stage.Rules
	// RequiredDocuments seed the file checklist when a contract is drafted
	RequiredDocuments []string
	// StoreTimeout bounds every action
	StoreTimeout time.Duration
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		ShortlistWeights:      scoring.DefaultShortlistWeights,
		ShortlistPassingScore: scoring.DefaultShortlistPassingScore,
		TestPassingMarks:      50,
		PriorWeight:           scoring.DefaultPriorWeight,
		InterviewWeight:       scoring.DefaultInterviewWeight,
		Rules:                 stage.DefaultRules,
		RequiredDocuments: []string{
			"signed_contract",
			"national_id_copy",
			"academic_certificates",
			"bank_details",
		},
		StoreTimeout: 10 * time.Second,
	}
}

// Validate checks that the configuration is consistent
func (c Config) Validate() error {
	if err := c.ShortlistWeights.Validate(); err != nil {
		return err
	}
	if err := scoring.ValidatePassingScore("shortlist_passing_score", c.ShortlistPassingScore); err != nil {
		return err
	}
	if c.TestPassingMarks < 0 {
		return apperror.Validation("test_passing_marks", "must not be negative")
	}
	if err := scoring.ValidateBlend(c.PriorWeight, c.InterviewWeight); err != nil {
		return err
	}
	if c.Rules.MinCommitteeMembers < 1 {
		return apperror.Validation("min_committee_members", "must be at least 1")
	}
	if c.Rules.MinVerifiedReferences < 0 {
		return apperror.Validation("min_verified_references", "must not be negative")
	}
	if c.StoreTimeout <= 0 {
		return apperror.Validation("store_timeout", "must be positive")
	}
	return nil
}

// Engine coordinates the recruitment cases
type Engine struct {
	stores     port.Stores
	approvals  *approval.Service
	funnel     *funnel.Service
	dispatcher dispatcher.Dispatcher
	screener   port.SanctionScreener
	logger     Logger
	cfg        Config
	now        func() time.Time

	// per-case action locks
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Option configures the engine
type Option func(*Engine)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScreener sets the sanction screener used by RunSanctionCheck
func WithScreener(s port.SanctionScreener) Option {
	return func(e *Engine) {
		e.screener = s
	}
}

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over the given stores
func NewEngine(stores port.Stores, opts ...Option) *Engine {
	e := &Engine{
		stores: stores,
		logger: nopLogger{},
		cfg:    DefaultConfig(),
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	var approvalOpts []approval.Option
	if e.dispatcher != nil {
		approvalOpts = append(approvalOpts, approval.WithDispatcher(e.dispatcher))
	}
	e.approvals = approval.NewService(stores.History, stores.Tx, approvalOpts...)
	e.funnel = funnel.NewService(stores.Applications, stores.History)

	return e
}

// Config returns the configuration in effect
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) caseLock(caseID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[caseID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[caseID] = l
	}
	return l
}

func (e *Engine) stamp() *time.Time {
	t := e.now().UTC()
	return &t
}

// caseTx is one mutating action in progress on a loaded case
type caseTx struct {
	e      *Engine
	action string
	actor  string
	c      *entity.RecruitmentCase
	events []*event.Event
}

// mutate runs fn on the case inside a transaction while holding the case lock
func (e *Engine) mutate(ctx context.Context, caseID int64, action, actor string, fn func(ctx context.Context, tx *caseTx) error) error {
	unlock := e.lockCase(caseID)
	defer unlock()

	return e.transact(ctx, caseID, action, actor, fn)
}

func (e *Engine) lockCase(caseID int64) (unlock func()) {
	l := e.caseLock(caseID)
	l.Lock()
	return l.Unlock
}

// transact runs fn on the case inside a transaction bounded by the store
// timeout. Events emitted by fn are dispatched only after the commit.
// The caller holds the case lock.
func (e *Engine) transact(ctx context.Context, caseID int64, action, actor string, fn func(ctx context.Context, tx *caseTx) error) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	tx := &caseTx{e: e, action: action, actor: actor}
	err := e.stores.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		c, err := e.stores.Cases.GetByID(txCtx, caseID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperror.NotFound("recruitment case", caseID)
		}
		if c.Status.IsClosed() {
			return apperror.Precondition(action, fmt.Sprintf("case is %s", c.Status))
		}
		tx.c = c
		return fn(txCtx, tx)
	})
	if err != nil {
		err = degrade(action, err)
		e.logger.Error("Recruitment action failed", "action", action, "case_id", caseID, "actor", actor, "error", err)
		return err
	}

	e.logger.Info("Recruitment action completed", "action", action, "case_id", caseID, "actor", actor)
	e.publish(parent, tx.events)
	return nil
}

// bounded runs fn under the store timeout without the case lock or a
// transaction. It serves queries and writes that touch no case.
func (e *Engine) bounded(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		return degrade(op, err)
	}
	return nil
}

// degrade reports an exhausted time budget as a retryable failure
func degrade(op string, err error) error {
	if errors.Is(err, apperror.ErrRetryable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Retryable(op, err)
	}
	return err
}

func (e *Engine) publish(ctx context.Context, events []*event.Event) {
	if e.dispatcher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, evt := range events {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

// emit queues an event for dispatch after commit
func (tx *caseTx) emit(t event.Type, payload map[string]interface{}) {
	tx.events = append(tx.events, event.NewEvent(t, tx.c.ID, payload).ByActor(tx.actor))
}

// queue holds an already built event for dispatch after commit
func (tx *caseTx) queue(evt *event.Event) {
	tx.events = append(tx.events, evt)
}

// saveCase applies mutate to the loaded case and keeps the stored result
func (tx *caseTx) saveCase(ctx context.Context, mutate func(c *entity.RecruitmentCase) error) error {
	updated, err := tx.e.stores.Cases.Update(ctx, tx.c.ID, mutate)
	if err != nil {
		return err
	}
	tx.c = updated
	return nil
}

// record appends an audit entry for the case
func (tx *caseTx) record(ctx context.Context, rec entity.Record, action, previous, next, note string) error {
	entry := &entity.HistoryEntry{
		CaseID:         tx.c.ID,
		Entity:         rec.Kind(),
		EntityID:       rec.GetID(),
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      next,
		Actor:          tx.actor,
		Note:           note,
	}
	if err := tx.e.stores.History.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// editable checks that the case may be modified at a stage within [from, to].
// A past stage needs an active edit override; a future stage is refused.
func (tx *caseTx) editable(ctx context.Context, from, to stage.Stage) error {
	current := stage.Stage(tx.c.CurrentStep)
	if current < from {
		return apperror.Precondition(tx.action, fmt.Sprintf("stage not reached: case is at %s, action belongs to %s", current, from))
	}
	if current <= to {
		return nil
	}

	overrides, err := byCase(ctx, tx.e.stores.Overrides, tx.c.ID)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if o.IsActive() && stage.Stage(o.Stage) >= from && stage.Stage(o.Stage) <= to {
			return nil
		}
	}
	return apperror.Precondition(tx.action, fmt.Sprintf("stage %s is closed; an edit override is required", to))
}

// at is editable for a single stage
func (tx *caseTx) at(ctx context.Context, s stage.Stage) error {
	return tx.editable(ctx, s, s)
}

// recordPtr constrains generic helpers to pointer records
type recordPtr[E any] interface {
	*E
	entity.Record
}

// mustGet loads a record or fails with NotFoundError
func mustGet[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], name string, id int64) (P, error) {
	rec, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.NotFound(name, id)
	}
	return rec, nil
}

// owned loads a record and checks that it belongs to the case.
// A record of another case is reported as not found.
func owned[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], name string, id, caseID int64) (P, error) {
	rec, err := mustGet(ctx, store, name, id)
	if err != nil {
		return nil, err
	}
	for _, idx := range rec.Indexes() {
		if idx.Name == entity.IndexCaseID && idx.Value == entity.FormatID(caseID) {
			return rec, nil
		}
	}
	return nil, apperror.NotFound(name, id)
}

func byCase[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], caseID int64) ([]P, error) {
	return store.GetByIndex(ctx, entity.IndexCaseID, entity.FormatID(caseID))
}

func byParent[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], parentID int64) ([]P, error) {
	return store.GetByIndex(ctx, entity.IndexParentID, entity.FormatID(parentID))
}

// latest returns the most recently created record of the case, or nil
func latest[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], caseID int64) (P, error) {
	recs, err := byCase(ctx, store, caseID)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[len(recs)-1], nil
}

// required returns a validation error naming field when value is blank
func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.Validation(field, "is required")
	}
	return nil
}
