package query

import (
	"fmt"
	"strconv"
	"strings"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
	"airbnb-explorer/validation"
)

// Op is the comparison a Clause applies.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpIs
	OpIsNot
	OpPresent
	OpBetween
)

var opSymbols = map[Op]string{
	OpEq:      "==",
	OpNe:      "!=",
	OpGt:      ">",
	OpGe:      ">=",
	OpLt:      "<",
	OpLe:      "<=",
	OpIs:      "==",
	OpIsNot:   "!=",
	OpPresent: "present",
	OpBetween: "between",
}

// Clause is one typed column comparison. Build clauses with the constructors
// below; the zero Clause is not meaningful. Clauses built with the *Int
// constructors compare int64 values exactly and apply to integer columns only.
type Clause struct {
	col   models.Column
	op    Op
	num   float64
	hi    float64
	inum  int64
	ihi   int64
	exact bool
	text  string
}

// Eq matches rows whose numeric col equals v.
func Eq(col models.Column, v float64) Clause { return Clause{col: col, op: OpEq, num: v} }

// Ne matches rows whose numeric col is present and differs from v.
func Ne(col models.Column, v float64) Clause { return Clause{col: col, op: OpNe, num: v} }

// Gt matches rows whose numeric col is greater than v.
func Gt(col models.Column, v float64) Clause { return Clause{col: col, op: OpGt, num: v} }

// Ge matches rows whose numeric col is at least v.
func Ge(col models.Column, v float64) Clause { return Clause{col: col, op: OpGe, num: v} }

// Lt matches rows whose numeric col is less than v.
func Lt(col models.Column, v float64) Clause { return Clause{col: col, op: OpLt, num: v} }

// Le matches rows whose numeric col is at most v.
func Le(col models.Column, v float64) Clause { return Clause{col: col, op: OpLe, num: v} }

// EqInt matches rows whose integer col equals v exactly.
func EqInt(col models.Column, v int64) Clause { return intClause(col, OpEq, v) }

// NeInt matches rows whose integer col differs from v.
func NeInt(col models.Column, v int64) Clause { return intClause(col, OpNe, v) }

// GtInt matches rows whose integer col is greater than v.
func GtInt(col models.Column, v int64) Clause { return intClause(col, OpGt, v) }

// GeInt matches rows whose integer col is at least v.
func GeInt(col models.Column, v int64) Clause { return intClause(col, OpGe, v) }

// LtInt matches rows whose integer col is less than v.
func LtInt(col models.Column, v int64) Clause { return intClause(col, OpLt, v) }

// LeInt matches rows whose integer col is at most v.
func LeInt(col models.Column, v int64) Clause { return intClause(col, OpLe, v) }

func intClause(col models.Column, op Op, v int64) Clause {
	return Clause{col: col, op: op, inum: v, exact: true}
}

// Is matches rows whose text col equals s.
func Is(col models.Column, s string) Clause { return Clause{col: col, op: OpIs, text: s} }

// IsNot matches rows whose text col differs from s.
func IsNot(col models.Column, s string) Clause { return Clause{col: col, op: OpIsNot, text: s} }

// Present matches rows where col has a value.
func Present(col models.Column) Clause { return Clause{col: col, op: OpPresent} }

// InRange matches rows whose numeric col lies in r, bounds included.
func InRange(col models.Column, r validation.Range[float64]) Clause {
	return Clause{col: col, op: OpBetween, num: r.Min(), hi: r.Max()}
}

// InCountRange matches rows whose integer col lies in r, bounds included.
func InCountRange(col models.Column, r validation.Range[int]) Clause {
	return Clause{col: col, op: OpBetween, inum: int64(r.Min()), ihi: int64(r.Max()), exact: true}
}

// Column returns the column the clause reads.
func (c Clause) Column() models.Column { return c.col }

// Op returns the comparison the clause applies.
func (c Clause) Op() Op { return c.op }

func (c Clause) validate() error {
	kind := c.col.Kind()
	switch {
	case kind == models.KindUnknown:
		return apperrors.New(apperrors.KindInvalidArgument, "unknown column %q", c.col)
	case c.op == OpPresent:
		return nil
	case (c.op == OpIs || c.op == OpIsNot) && kind != models.KindText:
		return apperrors.New(apperrors.KindInvalidArgument, "column %q is not text", c.col)
	case c.op != OpIs && c.op != OpIsNot && !c.col.Numeric():
		return apperrors.New(apperrors.KindInvalidArgument, "column %q is not numeric", c.col)
	case c.exact && kind != models.KindInt:
		return apperrors.New(apperrors.KindInvalidArgument, "column %q is not an integer column", c.col)
	}
	return nil
}

// Match reports whether l satisfies the clause. Numeric comparisons against
// an absent value are false.
func (c Clause) Match(l models.Listing) bool {
	switch c.op {
	case OpIs, OpIsNot:
		s, _ := l.Text(c.col)
		return (s == c.text) == (c.op == OpIs)
	case OpPresent:
		if c.col.Kind() == models.KindText {
			s, ok := l.Text(c.col)
			return ok && s != ""
		}
		_, ok := l.Number(c.col)
		return ok
	}

	if c.exact {
		v, ok := l.Int(c.col)
		return ok && compare(c.op, v, c.inum, c.ihi)
	}
	v, ok := l.Number(c.col)
	return ok && compare(c.op, v, c.num, c.hi)
}

func compare[T int64 | float64](op Op, v, lo, hi T) bool {
	switch op {
	case OpEq:
		return v == lo
	case OpNe:
		return v != lo
	case OpGt:
		return v > lo
	case OpGe:
		return v >= lo
	case OpLt:
		return v < lo
	case OpLe:
		return v <= lo
	case OpBetween:
		return v >= lo && v <= hi
	}
	return false
}

func (c Clause) String() string {
	switch c.op {
	case OpIs, OpIsNot:
		return fmt.Sprintf("%s %s %q", c.col, opSymbols[c.op], c.text)
	case OpPresent:
		return fmt.Sprintf("%s present", c.col)
	case OpBetween:
		return fmt.Sprintf("%s between [%s, %s]", c.col, c.operand(c.num, c.inum), c.operand(c.hi, c.ihi))
	}
	return fmt.Sprintf("%s %s %s", c.col, opSymbols[c.op], c.operand(c.num, c.inum))
}

func (c Clause) operand(f float64, i int64) string {
	if c.exact {
		return strconv.FormatInt(i, 10)
	}
	return formatNum(f)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Predicate is a conjunction of clauses. The empty Predicate matches every
// row. Predicates hold a slice and are not comparable; use String to key a
// cache by predicate.
type Predicate struct {
	clauses []Clause
}

// Where builds a Predicate from clauses.
func Where(clauses ...Clause) Predicate {
	return Predicate{clauses: append([]Clause(nil), clauses...)}
}

// And returns a Predicate with extra clauses appended. p is not modified.
func (p Predicate) And(clauses ...Clause) Predicate {
	out := make([]Clause, 0, len(p.clauses)+len(clauses))
	out = append(out, p.clauses...)
	return Predicate{clauses: append(out, clauses...)}
}

// Clauses returns a copy of the clauses.
func (p Predicate) Clauses() []Clause {
	return append([]Clause(nil), p.clauses...)
}

// Validate checks that every clause names a known column of a compatible
// kind.
func (p Predicate) Validate() error {
	for _, c := range p.clauses {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether l satisfies every clause.
func (p Predicate) Match(l models.Listing) bool {
	for _, c := range p.clauses {
		if !c.Match(l) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	if len(p.clauses) == 0 {
		return "true"
	}
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}
