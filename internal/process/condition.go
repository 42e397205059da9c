package process

import (
	"fmt"
	"strconv"

	"github.com/Knetic/govaluate"
	"go.uber.org/zap"
)

// 支持的比较操作
const (
	CompareEqIn        = "eq_in"
	CompareNeqIn       = "neq_in"
	CompareEqual       = "equal"
	CompareNotEqual    = "not_equal"
	CompareWasEqual    = "was_equal"
	CompareWasNotEqual = "was_not_equal"
	CompareChanged     = "changed"
	CompareNotChanged  = "not_changed"
	CompareExpr        = "expr"
)

// ConditionEvaluator 条件求值器
// 子句按声明顺序做短路 AND；未识别的比较操作按不匹配处理（fail-closed）
type ConditionEvaluator struct {
	logger *zap.Logger
}

// NewConditionEvaluator 创建条件求值器
func NewConditionEvaluator(logger *zap.Logger) *ConditionEvaluator {
	return &ConditionEvaluator{logger: logger}
}

// Evaluate 对子句列表求值
// 空子句列表视为无匹配信号，返回 false（is_conditional=false 的流程不会走到这里）
func (e *ConditionEvaluator) Evaluate(clauses []ConditionClause, ctx map[string]any) bool {
	if len(clauses) == 0 {
		return false
	}

	for _, clause := range clauses {
		if !e.evaluateClause(clause, ctx) {
			return false
		}
	}
	return true
}

func (e *ConditionEvaluator) evaluateClause(clause ConditionClause, ctx map[string]any) bool {
	// changed 族从派生键取目标值，其余直接取属性
	var target any
	switch clause.Comparison {
	case CompareChanged, CompareNotChanged:
		target = ctx[clause.TargetProps+"_changed"]
	case CompareWasEqual, CompareWasNotEqual:
		target = ctx["old_"+clause.TargetProps]
	default:
		target = ctx[clause.TargetProps]
	}

	switch clause.Comparison {
	case CompareChanged:
		return target == true

	case CompareNotChanged:
		return target == false

	case CompareEqIn, CompareWasEqual:
		return containsValue(valueList(clause.Value), target)

	case CompareEqual:
		return containsValue(normalizeBoolList(valueList(clause.Value)), target)

	case CompareNeqIn, CompareWasNotEqual, CompareNotEqual:
		return !containsValue(valueList(clause.Value), target)

	case CompareExpr:
		return e.evaluateExpression(clause.Value, ctx)

	default:
		// 未识别的比较操作按不匹配处理，不作为错误抛出
		if e.logger != nil {
			e.logger.Warn("未识别的条件比较操作",
				zap.String("comparison", clause.Comparison),
				zap.String("target_props", clause.TargetProps),
			)
		}
		return false
	}
}

// evaluateExpression 对 govaluate 表达式求值
// 解析失败、求值失败或结果非布尔值时均视为不匹配
func (e *ConditionEvaluator) evaluateExpression(value any, ctx map[string]any) bool {
	exprStr, ok := value.(string)
	if !ok || exprStr == "" {
		return false
	}

	expression, err := govaluate.NewEvaluableExpression(exprStr)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("解析条件表达式失败", zap.String("expr", exprStr), zap.Error(err))
		}
		return false
	}

	parameters := make(map[string]any, len(ctx))
	for k, v := range ctx {
		parameters[k] = v
	}

	result, err := expression.Evaluate(parameters)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("条件表达式求值失败", zap.String("expr", exprStr), zap.Error(err))
		}
		return false
	}

	boolResult, ok := result.(bool)
	return ok && boolResult
}

// valueList 将子句 value 规范化为切片
func valueList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// normalizeBoolList 将 is_true/is_false 字面量映射为布尔值
func normalizeBoolList(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		switch v {
		case "is_true":
			out = append(out, true)
		case "is_false":
			out = append(out, false)
		}
	}
	return out
}

// containsValue 成员判定，数字跨类型按数值比较
func containsValue(values []any, target any) bool {
	for _, v := range values {
		if looseEquals(v, target) {
			return true
		}
	}
	return false
}

// looseEquals 宽松相等
// jsonb 反序列化的数字是 float64，而上下文里可能是 uint/int，
// 因此数字一律折算为 float64 再比较
func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
