package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestEvaluateEqIn(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareEqIn, TargetProps: "status", Value: []any{"approved", "confirmed"}},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{"status": "approved"}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"status": "pending"}))
}

func TestEvaluateNeqIn(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareNeqIn, TargetProps: "status", Value: []any{"cancelled"}},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{"status": "approved"}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"status": "cancelled"}))
}

func TestEvaluateEqualBoolLiterals(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareEqual, TargetProps: "referrer", Value: []any{"is_true"}},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{"referrer": true}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"referrer": false}))
}

func TestEvaluateChangedFlags(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	changed := []ConditionClause{{Comparison: CompareChanged, TargetProps: "status"}}
	notChanged := []ConditionClause{{Comparison: CompareNotChanged, TargetProps: "status"}}

	ctx := map[string]any{"status_changed": true}
	assert.True(t, evaluator.Evaluate(changed, ctx))
	assert.False(t, evaluator.Evaluate(notChanged, ctx))

	ctx = map[string]any{"status_changed": false}
	assert.False(t, evaluator.Evaluate(changed, ctx))
	assert.True(t, evaluator.Evaluate(notChanged, ctx))
}

func TestEvaluateWasEqual(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareWasEqual, TargetProps: "status", Value: []any{"pending"}},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{"old_status": "pending"}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"old_status": "approved"}))
}

func TestEvaluateNumericCrossType(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	// jsonb 反序列化后配置值是 float64，上下文里是 uint
	clauses := []ConditionClause{
		{Comparison: CompareEqIn, TargetProps: "session", Value: []any{float64(42)}},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{"session": uint(42)}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"session": uint(7)}))
}

func TestEvaluateShortCircuitAnd(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareEqIn, TargetProps: "status", Value: []any{"approved"}},
		{Comparison: CompareChanged, TargetProps: "status"},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{
		"status":         "approved",
		"status_changed": true,
	}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{
		"status":         "approved",
		"status_changed": false,
	}))
}

func TestEvaluateUnknownComparisonFailsClosed(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: "fuzzy_match", TargetProps: "status", Value: "approved"},
	}

	assert.False(t, evaluator.Evaluate(clauses, map[string]any{"status": "approved"}))
}

func TestEvaluateEmptyClauseList(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	assert.False(t, evaluator.Evaluate(nil, map[string]any{"status": "approved"}))
	assert.False(t, evaluator.Evaluate([]ConditionClause{}, map[string]any{}))
}

func TestEvaluateExpression(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	clauses := []ConditionClause{
		{Comparison: CompareExpr, Value: "total > 100 && status == 'approved'"},
	}

	assert.True(t, evaluator.Evaluate(clauses, map[string]any{
		"total":  150.0,
		"status": "approved",
	}))
	assert.False(t, evaluator.Evaluate(clauses, map[string]any{
		"total":  50.0,
		"status": "approved",
	}))
}

func TestEvaluateExpressionErrorsFailClosed(t *testing.T) {
	evaluator := NewConditionEvaluator(zaptest.NewLogger(t))

	assert.False(t, evaluator.Evaluate(
		[]ConditionClause{{Comparison: CompareExpr, Value: "((("}},
		map[string]any{}))
	assert.False(t, evaluator.Evaluate(
		[]ConditionClause{{Comparison: CompareExpr, Value: "1 + 1"}},
		map[string]any{}))
	assert.False(t, evaluator.Evaluate(
		[]ConditionClause{{Comparison: CompareExpr, Value: 42}},
		map[string]any{}))
}

func TestBuildEventContextDerivedKeys(t *testing.T) {
	booking := &BookingRef{
		ID:            10,
		Status:        "approved",
		PaymentStatus: "paid",
		ServiceID:     3,
		AgentID:       7,
		Customer:      &CustomerRef{ID: 5, HasReferrer: true, BookingCount: 1},
	}

	ctx := BuildEventContext(DomainRefs{Booking: booking}, map[string]FieldChange{
		"service":        {Old: uint(2), New: uint(3)},
		"start_datetime": {Old: "2026-01-01", New: "2026-01-02"},
		"status":         {Old: "pending", New: "approved"},
	})

	assert.Equal(t, "approved", ctx["status"])
	assert.Equal(t, uint(3), ctx["session"])

	// service 别名映射到 session 派生键
	assert.Equal(t, true, ctx["session_changed"])
	assert.Equal(t, uint(2), ctx["old_session"])

	// start_datetime 变更置 start_time_changed
	assert.Equal(t, true, ctx["start_time_changed"])

	assert.Equal(t, true, ctx["status_changed"])
	assert.Equal(t, "pending", ctx["old_status"])
	assert.Equal(t, false, ctx["payment_status_changed"])

	assert.Equal(t, true, ctx["referrer_customer"])
	assert.Equal(t, true, ctx["customer_first_booking"])
}
