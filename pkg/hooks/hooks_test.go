package hooks

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

// recordingHook appends "name:phase" to a shared log and fails on demand
type recordingHook struct {
	BaseHook
	log         *[]string
	veto        bool
	beforeErr   error
	afterErr    error
	rollbackErr error
	panicPhase  Phase
}

func newRecordingHook(name string, priority int, log *[]string) *recordingHook {
	return &recordingHook{BaseHook: BaseHook{HookName: name, HookPriority: priority}, log: log}
}

func (h *recordingHook) record(phase Phase) {
	*h.log = append(*h.log, h.Name()+":"+string(phase))
	if h.panicPhase == phase {
		panic("hook exploded")
	}
}

func (h *recordingHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	h.record(PhaseBefore)
	if h.beforeErr != nil {
		return false, h.beforeErr
	}
	return !h.veto, nil
}

func (h *recordingHook) After(ctx context.Context, mc *MigrationContext) error {
	h.record(PhaseAfter)
	return h.afterErr
}

func (h *recordingHook) Rollback(ctx context.Context, mc *MigrationContext) error {
	h.record(PhaseRollback)
	return h.rollbackErr
}

func newTestPipeline(t *testing.T, hooks ...Hook) *Pipeline {
	t.Helper()
	p := NewPipeline(PipelineOptions{Logger: observability.DiscardLogger()})
	for _, h := range hooks {
		require.NoError(t, p.RegisterHook(h))
	}
	return p
}

func newTestContext(state map[string]interface{}) *MigrationContext {
	return NewMigrationContext("Order", "order-1", version.MustParse("1.0.0"), version.MustParse("1.1.0"), state)
}

func hookNames(p *Pipeline) []string {
	var names []string
	for _, h := range p.Hooks() {
		names = append(names, h.Name())
	}
	return names
}

func TestPipeline_RegisterHookSortsByPriority(t *testing.T) {
	var log []string
	p := newTestPipeline(t,
		newRecordingHook("c", 30, &log),
		newRecordingHook("a", 10, &log),
		newRecordingHook("b1", 20, &log),
		newRecordingHook("b2", 20, &log),
	)
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, hookNames(p))

	require.NoError(t, p.RegisterHook(newRecordingHook("a", 40, &log)))
	assert.Equal(t, []string{"b1", "b2", "c", "a"}, hookNames(p), "same name replaces")

	assert.True(t, p.UnregisterHook("b1"))
	assert.False(t, p.UnregisterHook("b1"))
	assert.Equal(t, []string{"b2", "c", "a"}, hookNames(p))

	assert.ErrorIs(t, p.RegisterHook(nil), ErrInvalidHook)
	assert.ErrorIs(t, p.RegisterHook(newRecordingHook("", 1, &log)), ErrInvalidHook)
}

func TestPipeline_BeforeVetoStopsPipeline(t *testing.T) {
	var log []string
	vetoing := newRecordingHook("gate", 20, &log)
	vetoing.veto = true
	p := newTestPipeline(t, newRecordingHook("first", 10, &log), vetoing, newRecordingHook("last", 30, &log))
	mc := newTestContext(nil)

	result := p.ExecuteBeforeMigrationHooks(context.Background(), mc)
	assert.False(t, result.Proceed)
	assert.Equal(t, "gate", result.VetoedBy)
	assert.NotEmpty(t, result.Reason)
	assert.ErrorIs(t, result.Err, ErrMigrationVetoed)
	assert.Equal(t, []string{"first:before", "gate:before"}, log)
	assert.Equal(t, []string{"first:before", "gate:before"}, mc.ExecutedHooks)
}

func TestPipeline_BeforeErrorAndPanicVeto(t *testing.T) {
	var log []string
	failing := newRecordingHook("failing", 10, &log)
	failing.beforeErr = errors.New("not today")
	p := newTestPipeline(t, failing)

	result := p.ExecuteBeforeMigrationHooks(context.Background(), newTestContext(nil))
	assert.False(t, result.Proceed)
	assert.ErrorIs(t, result.Err, ErrMigrationVetoed)
	assert.ErrorContains(t, result.Err, "not today")

	panicking := newRecordingHook("panicking", 10, &log)
	panicking.panicPhase = PhaseBefore
	p = newTestPipeline(t, panicking)

	result = p.ExecuteBeforeMigrationHooks(context.Background(), newTestContext(nil))
	assert.False(t, result.Proceed)
	assert.Equal(t, "panicking", result.VetoedBy)
	assert.ErrorIs(t, result.Err, ErrMigrationVetoed)
}

func TestPipeline_AfterIsBestEffort(t *testing.T) {
	var log []string
	failing := newRecordingHook("failing", 10, &log)
	failing.afterErr = errors.New("after failed")
	panicking := newRecordingHook("panicking", 20, &log)
	panicking.panicPhase = PhaseAfter
	p := newTestPipeline(t, failing, panicking, newRecordingHook("last", 30, &log))

	failures := p.ExecuteAfterMigrationHooks(context.Background(), newTestContext(nil))
	require.Len(t, failures, 2)
	assert.Equal(t, "failing", failures[0].Hook)
	assert.ErrorIs(t, failures[0].Err, ErrHookFault)
	assert.Equal(t, "panicking", failures[1].Hook)
	assert.Equal(t, []string{"failing:after", "panicking:after", "last:after"}, log)
}

func TestPipeline_RollbackReverseOrderAndIsolated(t *testing.T) {
	var log []string
	failing := newRecordingHook("b", 20, &log)
	failing.rollbackErr = errors.New("cannot undo")
	p := newTestPipeline(t, newRecordingHook("a", 10, &log), failing, newRecordingHook("c", 30, &log))

	failures := p.ExecuteRollbackHooks(context.Background(), newTestContext(nil))
	assert.Equal(t, []string{"c:rollback", "b:rollback", "a:rollback"}, log)
	require.Len(t, failures, 1)
	assert.Equal(t, PhaseRollback, failures[0].Phase)
	assert.ErrorIs(t, failures[0].Err, ErrRollbackFault)
}

func TestRunner_Success(t *testing.T) {
	var log []string
	p := newTestPipeline(t, newRecordingHook("a", 10, &log), newRecordingHook("b", 20, &log))
	runner := NewRunner(p, RunnerOptions{Logger: observability.DiscardLogger()})

	applied := false
	result := runner.RunMigration(context.Background(), newTestContext(nil), func(ctx context.Context, mc *MigrationContext) error {
		applied = true
		return nil
	})

	assert.True(t, applied)
	assert.True(t, result.Success)
	assert.Equal(t, StatusCommitted, result.Status)
	assert.NoError(t, result.Err)
	assert.Equal(t, []string{"a:before", "b:before", "a:after", "b:after"}, log)
	assert.Equal(t, []ExecutionState{
		StateRequested, StateBeforeHooksRunning, StateApplying, StateAfterHooksRunning, StateCommitted,
	}, result.Transitions)
}

// contextLogHook captures the log entry hooks see on the context
type contextLogHook struct {
	BaseHook
	fields map[string]interface{}
}

func (h *contextLogHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	h.fields = observability.FromContext(ctx, nil).Data
	return true, nil
}

func TestRunner_PutsMigrationLoggerOnContext(t *testing.T) {
	hook := &contextLogHook{BaseHook: BaseHook{HookName: "ctx", HookPriority: 1}}
	runner := NewRunner(newTestPipeline(t, hook), RunnerOptions{Logger: observability.DiscardLogger()})

	mc := newTestContext(nil)
	result := runner.RunMigration(context.Background(), mc, nil)

	require.True(t, result.Success)
	assert.Equal(t, mc.MigrationID, hook.fields["migration_id"])
	assert.Equal(t, mc.EntityType, hook.fields["entity_type"])
}

func TestRunner_VetoRunsRollbackNotAfter(t *testing.T) {
	var log []string
	gate := newRecordingHook("gate", 20, &log)
	gate.veto = true
	p := newTestPipeline(t, newRecordingHook("a", 10, &log), gate, newRecordingHook("c", 30, &log))
	runner := NewRunner(p, RunnerOptions{Logger: observability.DiscardLogger()})

	applied := false
	result := runner.RunMigration(context.Background(), newTestContext(nil), func(ctx context.Context, mc *MigrationContext) error {
		applied = true
		return nil
	})

	assert.False(t, applied)
	assert.False(t, result.Success)
	assert.Equal(t, StatusAborted, result.Status)
	assert.Equal(t, "gate", result.VetoedBy)
	assert.ErrorIs(t, result.Err, ErrMigrationVetoed)
	assert.Equal(t, []string{
		"a:before", "gate:before",
		"c:rollback", "gate:rollback", "a:rollback",
	}, log)
	assert.Equal(t, []ExecutionState{
		StateRequested, StateBeforeHooksRunning, StateAborted, StateRollbackHooksRunning, StateRolledBack,
	}, result.Transitions)
}

func TestRunner_ApplyFailureRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		apply ApplyFunc
	}{
		{"error", func(ctx context.Context, mc *MigrationContext) error { return errors.New("write failed") }},
		{"panic", func(ctx context.Context, mc *MigrationContext) error { panic("write exploded") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			p := newTestPipeline(t, newRecordingHook("a", 10, &log), newRecordingHook("b", 20, &log))
			runner := NewRunner(p, RunnerOptions{Logger: observability.DiscardLogger()})

			result := runner.RunMigration(context.Background(), newTestContext(nil), tt.apply)
			assert.False(t, result.Success)
			assert.Equal(t, StatusRolledBack, result.Status)
			assert.ErrorIs(t, result.Err, ErrMigrationFault)
			assert.Equal(t, []string{"a:before", "b:before", "b:rollback", "a:rollback"}, log)
			assert.Contains(t, result.Transitions, StateFailed)
		})
	}
}

func TestRunner_AfterFailureStillCommits(t *testing.T) {
	var log []string
	failing := newRecordingHook("a", 10, &log)
	failing.afterErr = errors.New("notify failed")
	runner := NewRunner(newTestPipeline(t, failing), RunnerOptions{Logger: observability.DiscardLogger()})

	result := runner.RunMigration(context.Background(), newTestContext(nil), nil)
	assert.True(t, result.Success)
	assert.Equal(t, StatusCommitted, result.Status)
	require.Len(t, result.AfterFailures, 1)
	assert.NotContains(t, log, "a:rollback")
}

func TestRunner_SerializesRunsOfOneContext(t *testing.T) {
	runner := NewRunner(newTestPipeline(t), RunnerOptions{Logger: observability.DiscardLogger()})
	mc := newTestContext(nil)

	var inFlight, peak atomic.Int32
	apply := func(ctx context.Context, mc *MigrationContext) error {
		n := inFlight.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.RunMigration(context.Background(), mc, apply)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
}

func TestStateBackupHook_RestoresExactly(t *testing.T) {
	state := map[string]interface{}{
		"state":  "Paid",
		"total":  42.5,
		"items":  []interface{}{"book", map[string]interface{}{"sku": "A1"}},
		"labels": map[string]string{"region": "eu"},
	}
	backup := NewStateBackupHook()
	mc := newTestContext(state)

	proceed, err := backup.Before(context.Background(), mc)
	require.NoError(t, err)
	require.True(t, proceed)

	// Mutate everything the migration could touch
	mc.State["state"] = "Settled"
	mc.State["temp"] = "added during migration"
	delete(mc.State, "total")
	mc.State["items"].([]interface{})[1].(map[string]interface{})["sku"] = "B2"
	mc.State["labels"].(map[string]string)["region"] = "us"

	require.NoError(t, backup.Rollback(context.Background(), mc))

	assert.Equal(t, map[string]interface{}{
		"state":  "Paid",
		"total":  42.5,
		"items":  []interface{}{"book", map[string]interface{}{"sku": "A1"}},
		"labels": map[string]string{"region": "eu"},
	}, mc.State)
	_, hasTemp := state["temp"]
	assert.False(t, hasTemp, "the live map itself is restored")
}

func TestCopyState(t *testing.T) {
	n := 7
	original := map[string]interface{}{"ptr": &n, "nil": nil, "nested": map[string]interface{}{"list": []int{1, 2}}}
	copied := CopyState(original)

	*copied["ptr"].(*int) = 9
	copied["nested"].(map[string]interface{})["list"].([]int)[0] = 100

	assert.Equal(t, 7, n)
	assert.Equal(t, []int{1, 2}, original["nested"].(map[string]interface{})["list"])
	assert.Nil(t, copied["nil"])
	assert.Nil(t, CopyState(nil))
}

type shippingInfo struct {
	Carrier string
	Tags    map[string]string
}

func TestCopyState_ArraysAndStructs(t *testing.T) {
	info := shippingInfo{Carrier: "dhl", Tags: map[string]string{"speed": "express"}}
	pair := [2]map[string]interface{}{{"a": 1}, {"b": 2}}
	original := map[string]interface{}{"info": info, "pair": pair, "infoPtr": &info}

	copied := CopyState(original)

	copied["info"].(shippingInfo).Tags["speed"] = "ground"
	copied["pair"].([2]map[string]interface{})[0]["a"] = 100
	copied["infoPtr"].(*shippingInfo).Tags["speed"] = "freight"

	assert.Equal(t, "express", info.Tags["speed"])
	assert.Equal(t, 1, pair[0]["a"])
	assert.Equal(t, "dhl", copied["info"].(shippingInfo).Carrier)
}

func TestCopyState_Cycles(t *testing.T) {
	loop := map[string]interface{}{"name": "loop"}
	loop["self"] = loop
	shared := map[string]interface{}{"n": 1}
	original := map[string]interface{}{"loop": loop, "first": shared, "second": shared}

	var copied map[string]interface{}
	require.NotPanics(t, func() { copied = CopyState(original) })

	copiedLoop := copied["loop"].(map[string]interface{})
	self := copiedLoop["self"].(map[string]interface{})
	assert.Equal(t, reflect.ValueOf(copiedLoop).Pointer(), reflect.ValueOf(self).Pointer(), "the cycle points at the copy")
	assert.NotEqual(t, reflect.ValueOf(loop).Pointer(), reflect.ValueOf(self).Pointer())

	copied["first"].(map[string]interface{})["n"] = 2
	assert.Equal(t, 2, copied["second"].(map[string]interface{})["n"], "shared values stay shared within the copy")
	assert.Equal(t, 1, shared["n"])
}

func orderRegistry(t *testing.T) *definition.MemoryRegistry {
	t.Helper()
	reg := definition.NewMemoryRegistry()
	require.NoError(t, reg.Register(&definition.Definition{
		EntityType:   "Order",
		Version:      version.MustParse("1.1.0"),
		InitialState: "Pending",
		States:       []string{"Pending", "Paid"},
		Triggers:     []string{"pay"},
		Transitions:  []definition.Transition{{From: "Pending", Trigger: "pay", To: "Paid"}},
	}))
	return reg
}

func TestStateCompatibilityValidationHook(t *testing.T) {
	hook := NewStateCompatibilityValidationHook(orderRegistry(t), "", observability.DiscardLogger())

	known := newTestContext(map[string]interface{}{"state": "Paid"})
	proceed, err := hook.Before(context.Background(), known)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Empty(t, known.Warnings)

	unknown := newTestContext(map[string]interface{}{"state": "Shipped"})
	proceed, err = hook.Before(context.Background(), unknown)
	require.NoError(t, err)
	assert.True(t, proceed, "validation never blocks")
	require.Len(t, unknown.Warnings, 1)
	assert.Contains(t, unknown.Warnings[0], "Shipped")

	missing := NewMigrationContext("Order", "o", version.MustParse("1.0.0"), version.MustParse("9.0.0"), map[string]interface{}{"state": "Paid"})
	proceed, _ = hook.Before(context.Background(), missing)
	assert.True(t, proceed)
	assert.Len(t, missing.Warnings, 1)

	custom := NewStateCompatibilityValidationHook(orderRegistry(t), "status", observability.DiscardLogger())
	mc := newTestContext(map[string]interface{}{"status": "Gone"})
	_, _ = custom.Before(context.Background(), mc)
	assert.Len(t, mc.Warnings, 1)
}

func TestStateTransformationHook(t *testing.T) {
	hook := NewStateTransformationHook()
	from, to := version.MustParse("1.0.0"), version.MustParse("1.1.0")

	mc := newTestContext(map[string]interface{}{"amount": 10})
	proceed, err := hook.Before(context.Background(), mc)
	require.NoError(t, err)
	assert.True(t, proceed, "no transform registered is a no-op")

	hook.Register(from, to, func(ctx context.Context, state map[string]interface{}) error {
		state["total"] = state["amount"]
		delete(state, "amount")
		return nil
	})
	assert.True(t, hook.Has(from, to))
	assert.False(t, hook.Has(from, version.MustParse("2.0.0")))

	proceed, err = hook.Before(context.Background(), mc)
	require.NoError(t, err)
	assert.True(t, proceed)
	assert.Equal(t, map[string]interface{}{"total": 10}, mc.State)
}

func TestRunner_DefaultHooksRollBackFailedTransform(t *testing.T) {
	sink := audit.NewMemoryLogger()
	pipeline := NewPipeline(PipelineOptions{Logger: observability.DiscardLogger()})
	transform, err := RegisterDefaultHooks(pipeline, sink, orderRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"audit-logging", "state-backup", "state-transformation", "state-compatibility-validation"}, hookNames(pipeline))

	mc := newTestContext(map[string]interface{}{"state": "Paid", "amount": 10})
	transform.Register(mc.From, mc.To, func(ctx context.Context, state map[string]interface{}) error {
		state["half_written"] = true
		delete(state, "amount")
		return errors.New("currency unknown")
	})

	runner := NewRunner(pipeline, RunnerOptions{Logger: observability.DiscardLogger()})
	result := runner.RunMigration(context.Background(), mc, func(ctx context.Context, mc *MigrationContext) error {
		t.Fatal("apply must not run after a veto")
		return nil
	})

	assert.Equal(t, StatusAborted, result.Status)
	assert.Equal(t, "state-transformation", result.VetoedBy)
	assert.ErrorContains(t, result.Err, "currency unknown")
	assert.Equal(t, map[string]interface{}{"state": "Paid", "amount": 10}, mc.State)

	var types []audit.EventType
	for _, e := range sink.Search(audit.Filter{MigrationID: mc.MigrationID}) {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []audit.EventType{
		audit.EventTypeMigrationStart,
		audit.EventTypeMigrationVeto,
		audit.EventTypeMigrationRollback,
	}, types)
}

func TestRunner_DefaultHooksValidateTransformedState(t *testing.T) {
	tests := []struct {
		name     string
		mapped   string
		warnings int
	}{
		{name: "mapped to a known state", mapped: "Pending", warnings: 0},
		{name: "mapped to an unknown state", mapped: "Archived", warnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := NewPipeline(PipelineOptions{Logger: observability.DiscardLogger()})
			transform, err := RegisterDefaultHooks(pipeline, nil, orderRegistry(t))
			require.NoError(t, err)

			mc := newTestContext(map[string]interface{}{"state": "Draft"})
			transform.Register(mc.From, mc.To, func(ctx context.Context, state map[string]interface{}) error {
				state["state"] = tt.mapped
				return nil
			})

			result := NewRunner(pipeline, RunnerOptions{Logger: observability.DiscardLogger()}).RunMigration(context.Background(), mc, nil)
			require.True(t, result.Success)
			require.Len(t, mc.Warnings, tt.warnings)
			if tt.warnings > 0 {
				assert.Contains(t, mc.Warnings[0], "current state "+tt.mapped+" does not exist")
			}
		})
	}
}

func TestRunner_DefaultHooksCommit(t *testing.T) {
	sink := audit.NewMemoryLogger()
	pipeline := NewPipeline(PipelineOptions{Logger: observability.DiscardLogger()})
	transform, err := RegisterDefaultHooks(pipeline, sink, orderRegistry(t))
	require.NoError(t, err)

	mc := newTestContext(map[string]interface{}{"state": "Shipped", "amount": 10})
	transform.Register(mc.From, mc.To, func(ctx context.Context, state map[string]interface{}) error {
		state["total"] = state["amount"]
		delete(state, "amount")
		return nil
	})

	runner := NewRunner(pipeline, RunnerOptions{Logger: observability.DiscardLogger()})
	result := runner.RunMigration(context.Background(), mc, nil)

	require.True(t, result.Success)
	assert.Equal(t, map[string]interface{}{"state": "Shipped", "total": 10}, mc.State)
	assert.Len(t, mc.Warnings, 1, "unknown state is flagged, not blocked")
	_, hasBackup := mc.Metadata[backupKey]
	assert.False(t, hasBackup, "backup is released after commit")

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventTypeMigrationSuccess, events[1].EventType)
	assert.Equal(t, mc.MigrationID, events[1].MigrationID)
	assert.Contains(t, events[1].Metadata, "warnings")
}
