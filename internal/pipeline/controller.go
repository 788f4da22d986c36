package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sagarsarangi/startup-check/internal/analysis"
	"github.com/sagarsarangi/startup-check/internal/store"
	"github.com/sagarsarangi/startup-check/internal/telemetry"
	"github.com/sagarsarangi/startup-check/models"
	"github.com/sagarsarangi/startup-check/provider"
)

// State is the lifecycle of a session's current run.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrorKind labels the stage that failed a run, for diagnostics and metrics.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindMissingCredential  ErrorKind = "missing_credential"
	KindTransportFailure   ErrorKind = "transport_failure"
	KindEmptyResponse      ErrorKind = "empty_response"
	KindParseFailure       ErrorKind = "parse_failure"
	KindSchemaFailure      ErrorKind = "schema_failure"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// ErrRunInFlight is returned when a session submits while its previous run is
// still going. Concurrent submissions are rejected, not queued.
var ErrRunInFlight = errors.New("analysis run already in flight")

// Status is a snapshot of a session's run state, including the last submitted
// input so a failed run can be resubmitted without retyping.
type Status struct {
	State     State               `json:"state"`
	ErrorKind ErrorKind           `json:"error_kind,omitempty"`
	LastInput models.StartupInput `json:"last_input"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type sessionState struct {
	state     State
	errKind   ErrorKind
	lastInput models.StartupInput
	updatedAt time.Time
}

// Controller owns one request/response cycle: prompt, complete, normalize,
// persist. It enforces at-most-one in-flight run per session and never
// persists a partial result.
type Controller struct {
	llm    provider.Provider
	store  store.Store
	tele   *telemetry.Telemetry
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// New creates a controller.
func New(llm provider.Provider, st store.Store, tele *telemetry.Telemetry) *Controller {
	return &Controller{
		llm:      llm,
		store:    st,
		tele:     tele,
		logger:   log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
		sessions: make(map[string]*sessionState),
	}
}

// Submit runs one full cycle for the session. Invalid input is rejected
// without leaving Idle; a concurrent submit is rejected with ErrRunInFlight
// before any network call.
func (c *Controller) Submit(ctx context.Context, sessionID string, input models.StartupInput) (store.Pair, error) {
	if err := input.Validate(); err != nil {
		return store.Pair{}, err
	}

	c.mu.Lock()
	sess := c.session(sessionID)
	if sess.state == StateSubmitting {
		c.mu.Unlock()
		return store.Pair{}, ErrRunInFlight
	}
	sess.state = StateSubmitting
	sess.errKind = KindNone
	sess.lastInput = input
	sess.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	started := time.Now()
	pair, err := c.run(ctx, sessionID, input)
	if err != nil {
		kind := Classify(err)
		c.logger.Printf("run failed: session=%s kind=%s err=%v", sessionID, kind, err)
		c.finish(sessionID, StateFailed, kind)
		c.tele.RecordRun(telemetry.RunEvent{
			Success:     false,
			FailureKind: string(kind),
			Duration:    time.Since(started),
		})
		return store.Pair{}, err
	}

	c.finish(sessionID, StateSucceeded, KindNone)
	c.tele.RecordRun(telemetry.RunEvent{
		Success:      true,
		Duration:     time.Since(started),
		PromptTokens: pair.promptTokens,
		OutputTokens: pair.outputTokens,
	})
	return pair.Pair, nil
}

type runResult struct {
	store.Pair
	promptTokens int64
	outputTokens int64
}

func (c *Controller) run(ctx context.Context, sessionID string, input models.StartupInput) (runResult, error) {
	prompt := analysis.BuildPrompt(input)

	completion, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return runResult{}, err
	}

	result, err := analysis.Normalize(completion.Text)
	if err != nil {
		return runResult{}, err
	}

	if err := c.store.Save(ctx, sessionID, input, result); err != nil {
		return runResult{}, persistErr{err}
	}

	pair, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return runResult{}, persistErr{err}
	}
	return runResult{Pair: pair, promptTokens: completion.PromptTokens, outputTokens: completion.OutputTokens}, nil
}

// Status reports the session's current state. Failed runs keep the last input
// so the caller may resubmit without retyping.
func (c *Controller) Status(sessionID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(sessionID)
	return Status{
		State:     sess.state,
		ErrorKind: sess.errKind,
		LastInput: sess.lastInput,
		UpdatedAt: sess.updatedAt,
	}
}

// session returns the state for sessionID, creating it in Idle. Callers must
// hold c.mu.
func (c *Controller) session(sessionID string) *sessionState {
	sess, ok := c.sessions[sessionID]
	if !ok {
		sess = &sessionState{state: StateIdle}
		c.sessions[sessionID] = sess
	}
	return sess
}

func (c *Controller) finish(sessionID string, state State, kind ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(sessionID)
	sess.state = state
	sess.errKind = kind
	sess.updatedAt = time.Now().UTC()
}

// persistErr marks failures from the store stage so classification does not
// depend on the store's error strings.
type persistErr struct{ error }

func (e persistErr) Unwrap() error { return e.error }

// Classify maps a stage error to its diagnostic kind.
func Classify(err error) ErrorKind {
	var transportErr *provider.TransportError
	var parseErr *analysis.ParseError
	var schemaErr *analysis.SchemaError
	var pErr persistErr

	switch {
	case errors.Is(err, provider.ErrMissingCredential):
		return KindMissingCredential
	case errors.As(err, &pErr):
		return KindPersistenceFailure
	case errors.As(err, &transportErr):
		return KindTransportFailure
	case errors.Is(err, provider.ErrEmptyResponse):
		return KindEmptyResponse
	case errors.As(err, &parseErr):
		return KindParseFailure
	case errors.As(err, &schemaErr):
		return KindSchemaFailure
	default:
		// Anything unrecognized came out of the round trip to the model.
		return KindTransportFailure
	}
}
