// Package value implements the dynamic value model of the law execution
// core: a small sum type (Null, Bool, Int, Float, String, Date, List,
// Record) plus the coercion, comparison, and ordering rules operators apply
// at their boundaries.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindList
	KindRecord
)

// String renders a Kind's name for error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// maxSafeInt is 2^53, the largest integer magnitude a float64 represents
// exactly. Int arithmetic that would overflow this promotes to Float.
const maxSafeInt = int64(1) << 53

// Value is the dynamically-typed value every operator and context lookup
// produces and consumes.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	d      Date
	list   []Value
	record map[string]Value
}

// Null is the singular Null value.
var Null = Value{kind: KindNull}

// Bool constructs a Bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs an Int value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float constructs a Float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String constructs a String value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// FromDate constructs a Date value.
func FromDate(d Date) Value { return Value{kind: KindDate, d: d} }

// List constructs a List value. The slice is not copied; callers must treat
// it as owned by the returned Value.
func List(items []Value) Value { return Value{kind: KindList, list: items} }

// Record constructs a Record value. The map is not copied; callers must
// treat it as owned by the returned Value.
func Record(fields map[string]Value) Value { return Value{kind: KindRecord, record: fields} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns v's bool payload and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns v's int payload and whether v is an Int.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v's float payload and whether v is a Float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns v's string payload and whether v is a String.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsDate returns v's date payload and whether v is a Date.
func (v Value) AsDate() (Date, bool) { return v.d, v.kind == KindDate }

// AsList returns v's list payload and whether v is a List.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsRecord returns v's record payload and whether v is a Record.
func (v Value) AsRecord() (map[string]Value, bool) { return v.record, v.kind == KindRecord }

// MatchesDeclaredType reports whether v's runtime Kind is compatible with a
// law document's declared type name (int, float, string, bool, date, list,
// record). An int satisfies a "float" declaration (the same widening the
// arithmetic operators apply); an empty or otherwise unrecognised declared
// type always matches, since an absent or unmodelled declaration is not a
// conflict.
func (v Value) MatchesDeclaredType(declaredType string) bool {
	switch declaredType {
	case "":
		return true
	case "int":
		return v.kind == KindInt
	case "float":
		return v.kind == KindInt || v.kind == KindFloat
	case "string":
		return v.kind == KindString
	case "bool":
		return v.kind == KindBool
	case "date":
		return v.kind == KindDate
	case "list":
		return v.kind == KindList
	case "record":
		return v.kind == KindRecord
	default:
		return true
	}
}

// TypeError reports an operator applied to an unsupported operand kind.
type TypeError struct {
	Op      string
	Reason  string
	Operand Kind
}

func (e *TypeError) Error() string {
	if e.Operand != KindNull || e.Reason == "" {
		return fmt.Sprintf("%s: %s (got %s)", e.Op, e.Reason, e.Operand)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func typeErr(op, reason string, k Kind) error {
	return &TypeError{Op: op, Reason: reason, Operand: k}
}

// isNumeric reports whether v is Int or Float.
func (v Value) isNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// numeric returns v's numeric payload widened to float64, and whether v is
// numeric at all.
func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// promote applies Int+Int->Int, any Float->Float promotion to a binary
// arithmetic result, with Int-overflow-to-Float above 2^53 in magnitude.
func promote(a, b Value, result float64) Value {
	if a.kind == KindInt && b.kind == KindInt {
		i := int64(result)
		if float64(i) == result && i > -maxSafeInt && i < maxSafeInt {
			return Int(i)
		}
	}
	return Float(result)
}

func arith(op string, a, b Value, f func(x, y float64) float64) (Value, error) {
	x, ok := a.numeric()
	if !ok {
		return Value{}, typeErr(op, "operand is not numeric", a.kind)
	}
	y, ok := b.numeric()
	if !ok {
		return Value{}, typeErr(op, "operand is not numeric", b.kind)
	}
	return promote(a, b, f(x, y)), nil
}

// Add computes a + b.
func Add(a, b Value) (Value, error) {
	return arith("ADD", a, b, func(x, y float64) float64 { return x + y })
}

// Subtract computes a - b.
func Subtract(a, b Value) (Value, error) {
	return arith("SUBTRACT", a, b, func(x, y float64) float64 { return x - y })
}

// Multiply computes a * b.
func Multiply(a, b Value) (Value, error) {
	return arith("MULTIPLY", a, b, func(x, y float64) float64 { return x * y })
}

// Divide computes a / b. Division always yields Float, and division by zero
// fails with a DivisionByZero-flavoured error.
func Divide(a, b Value) (Value, error) {
	x, ok := a.numeric()
	if !ok {
		return Value{}, typeErr("DIVIDE", "operand is not numeric", a.kind)
	}
	y, ok := b.numeric()
	if !ok {
		return Value{}, typeErr("DIVIDE", "operand is not numeric", b.kind)
	}
	if y == 0 {
		return Value{}, ErrDivisionByZero
	}
	return Float(x / y), nil
}

// ErrDivisionByZero is returned by Divide when the divisor is zero.
var ErrDivisionByZero = fmt.Errorf("division by zero")

// Compare orders two values. It supports numeric pairs (after promotion),
// Date pairs, and String pairs (lexicographic); any other combination fails
// with a TypeError. The result is negative, zero, or positive as a<b, a==b,
// a>b.
func Compare(a, b Value) (int, error) {
	if xa, okA := a.numeric(); okA {
		if xb, okB := b.numeric(); okB {
			switch {
			case xa < xb:
				return -1, nil
			case xa > xb:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, typeErr("COMPARE", "cannot compare numeric with non-numeric", b.kind)
	}
	if a.kind == KindDate && b.kind == KindDate {
		switch {
		case a.d.Before(b.d):
			return -1, nil
		case a.d.After(b.d):
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.s, b.s), nil
	}
	return 0, typeErr("COMPARE", fmt.Sprintf("incomparable types %s and %s", a.kind, b.kind), a.kind)
}

// Equal reports whether a and b are equal. Equality compares after numeric
// promotion but never across kinds otherwise: a String never equals a Date
// or a Bool even when textually identical, and List/Record equality is
// structural.
func Equal(a, b Value) bool {
	if ax, ok := a.numeric(); ok {
		if bx, ok := b.numeric(); ok {
			return ax == bx
		}
		return false
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindDate:
		return a.d.Equal(b.d)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(a.record) != len(b.record) {
			return false
		}
		for k, av := range a.record {
			bv, ok := b.record[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Stringify renders v for CONCAT and similar string-producing operators.
func Stringify(v Value) string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindDate:
		return v.d.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = Stringify(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		keys := make([]string, 0, len(v.record))
		for k := range v.record {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Stringify(v.record[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// FromGo converts a plain Go value (string, bool, int/int64/float64, nil,
// []interface{}, map[string]interface{}, or already a Value/Date) into a
// Value. This is the boundary conversion the scenario runner (pkg/simulate)
// uses for its JSON-decoded parameters and expectations: callers hand in
// plain associative objects, never exotic container types.
func FromGo(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case Date:
		return FromDate(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			items[i] = v
		}
		return List(items), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = v
		}
		return Record(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported Go type %T for Value conversion", x)
	}
}

// IsTrue reports whether v is the Bool true value; used by operators that
// require a Bool subject (AND, OR, NOT, IF conditions). Returns an error for
// non-Bool values.
func IsTrue(v Value, op string) (bool, error) {
	b, ok := v.AsBool()
	if !ok {
		return false, typeErr(op, "operand is not a bool", v.kind)
	}
	return b, nil
}
