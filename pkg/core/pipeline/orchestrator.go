// Package pipeline runs a model end to end: validate the inputs, generate the
// statements, check them, and optionally persist the document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/calc"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/scenario"
	"smme_finmodel/pkg/core/store"
	"smme_finmodel/pkg/core/validate"
)

// ErrInvalidModel is returned when input validation raises errors.
var ErrInvalidModel = errors.New("model has input errors")

// ErrNoSweep is returned when a sensitivity run has no sweep to perform.
var ErrNoSweep = errors.New("sensitivity: no sweep defined")

// InvalidModelError carries the validator report behind ErrInvalidModel.
type InvalidModelError struct {
	Report validate.Report
}

func (e *InvalidModelError) Error() string {
	errs := e.Report.Errors()
	if len(errs) == 0 {
		return ErrInvalidModel.Error()
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrInvalidModel, errs[0].Message, len(errs)-1)
}

func (e *InvalidModelError) Unwrap() error { return ErrInvalidModel }

// Config tunes the orchestrator.
type Config struct {
	Tolerance    float64
	DaysInYear   float64
	DiscountRate float64
	Workers      int
}

// Run is the outcome of one generation.
type Run struct {
	Report   validate.Report    `json:"validation"`
	Result   *projection.Result `json:"statements"`
	Findings []validate.Finding `json:"findings"`
	Summary  calc.Summary       `json:"summary"`
	// Reliable is false when the checker found error-level breaks; the
	// statements are still returned so they can be inspected.
	Reliable bool `json:"reliable"`
}

// Orchestrator wires the engine, scenario runner and model store.
type Orchestrator struct {
	cfg    Config
	engine *projection.Engine
	runner *scenario.Runner
	repo   store.ModelStore
	log    *zap.Logger
}

// NewOrchestrator creates an orchestrator. repo may be nil when persistence
// is not needed.
func NewOrchestrator(cfg Config, repo store.ModelStore, log *zap.Logger) *Orchestrator {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = validate.DefaultTolerance
	}
	if log == nil {
		log = zap.NewNop()
	}
	engine := projection.NewEngine(projection.Settings{DaysInYear: cfg.DaysInYear})
	runner := scenario.NewRunner(engine, cfg.Workers)
	runner.Tolerance = cfg.Tolerance
	runner.DiscountRate = cfg.DiscountRate
	return &Orchestrator{cfg: cfg, engine: engine, runner: runner, repo: repo, log: log.Named("pipeline")}
}

// SetRepository allows injecting a custom store (e.g., for testing).
func (o *Orchestrator) SetRepository(repo store.ModelStore) {
	o.repo = repo
}

// Repository returns the configured store, or nil.
func (o *Orchestrator) Repository() store.ModelStore {
	return o.repo
}

// Validate runs the input validator only.
func (o *Orchestrator) Validate(state *assumption.ModelState) validate.Report {
	return validate.ValidateInputs(state)
}

// Generate validates, generates and checks one model. Input errors stop the
// run with an *InvalidModelError; consistency findings never do.
func (o *Orchestrator) Generate(ctx context.Context, state *assumption.ModelState) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	report := validate.ValidateInputs(state)
	if !report.IsValid {
		o.log.Info("model rejected", zap.String("model", modelName(state)), zap.Int("errors", len(report.Errors())))
		return nil, &InvalidModelError{Report: report}
	}

	res, err := o.engine.Generate(state)
	if err != nil {
		return nil, fmt.Errorf("generate statements: %w", err)
	}
	findings := validate.CheckConsistency(res, o.cfg.Tolerance)
	run := &Run{
		Report:   report,
		Result:   res,
		Findings: findings,
		Summary:  calc.Summarize(res, o.cfg.DiscountRate),
		Reliable: !validate.HasErrors(findings),
	}
	if !run.Reliable {
		o.log.Warn("statements failed consistency checks",
			zap.String("model", state.Name), zap.Int("findings", len(findings)),
			zap.String("first", findings[0].Message))
	}
	o.log.Debug("model generated", zap.String("model", state.Name),
		zap.Int("periods", len(res.Periods)), zap.Duration("took", time.Since(start)))
	return run, nil
}

// Scenarios validates the model, then runs every scenario.
func (o *Orchestrator) Scenarios(ctx context.Context, state *assumption.ModelState) (map[string]*scenario.Outcome, error) {
	if report := validate.ValidateInputs(state); !report.IsValid {
		return nil, &InvalidModelError{Report: report}
	}
	return o.runner.RunScenarios(ctx, state)
}

// Sensitivity validates the model, then sweeps driver, or the model's own
// sensitivity definition when driver is nil.
func (o *Orchestrator) Sensitivity(ctx context.Context, state *assumption.ModelState, driver *assumption.SensitivityDriver) (*scenario.Grid, error) {
	if driver != nil && state != nil {
		state = state.WithSensitivity(driver)
	}
	report := validate.ValidateInputs(state)
	if !report.IsValid {
		return nil, &InvalidModelError{Report: report}
	}
	if state.Sensitivity == nil {
		return nil, ErrNoSweep
	}
	return o.runner.RunSensitivity(ctx, state, *state.Sensitivity)
}

func modelName(s *assumption.ModelState) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// =============================================================================
// SESSION
// =============================================================================

// Session tracks which persisted model one user is editing.
type Session struct {
	UserID string

	mu             sync.Mutex
	currentModelID string
	version        int64
}

// NewSession starts a session for userID.
func NewSession(userID string) *Session {
	return &Session{UserID: userID}
}

// CurrentModelID is the id of the model last saved or loaded, if any.
func (s *Session) CurrentModelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentModelID
}

func (s *Session) track(id string, version int64) {
	s.mu.Lock()
	s.currentModelID, s.version = id, version
	s.mu.Unlock()
}

// Reset forgets the current model, e.g. when the user starts a new one.
func (s *Session) Reset() {
	s.track("", 0)
}

// Save persists state under the session's current model. Saves are guarded by
// the version last seen in this session.
func (o *Orchestrator) Save(ctx context.Context, sess *Session, state *assumption.ModelState) (store.Summary, error) {
	if o.repo == nil {
		return store.Summary{}, errors.New("save: no model store configured")
	}
	sess.mu.Lock()
	id, version := sess.currentModelID, sess.version
	sess.mu.Unlock()

	c := state.Clone()
	if id != "" {
		c.ID = id
	}
	sum, err := o.repo.Save(ctx, sess.UserID, c, version)
	if err != nil {
		return store.Summary{}, err
	}
	sess.track(sum.ID, sum.Version)
	return sum, nil
}

// Load fetches a model and makes it the session's current model.
func (o *Orchestrator) Load(ctx context.Context, sess *Session, id string) (*assumption.ModelState, error) {
	if o.repo == nil {
		return nil, errors.New("load: no model store configured")
	}
	m, err := o.repo.Load(ctx, sess.UserID, id)
	if err != nil {
		return nil, err
	}
	sess.track(id, m.Version)
	return m, nil
}

// Delete removes a model; deleting the current model resets the session.
func (o *Orchestrator) Delete(ctx context.Context, sess *Session, id string) error {
	if o.repo == nil {
		return errors.New("delete: no model store configured")
	}
	if err := o.repo.Delete(ctx, sess.UserID, id); err != nil {
		return err
	}
	if sess.CurrentModelID() == id {
		sess.Reset()
	}
	return nil
}
