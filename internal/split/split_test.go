package split

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
)

// fakeSchema is a JoinOracle and Metadata over a fixed field → joins map.
type fakeSchema struct {
	tables map[string]bool
	joins  map[string][]string // "table.field" → joins
}

func (f fakeSchema) ResolvedJoins(table, field string) []string {
	return f.joins[table+"."+field]
}

func (f fakeSchema) ResolveTable(entity string) (string, bool) {
	return entity, f.tables[entity]
}

// Fields named j* require a join; every other field is local.
func newFakeSchema() fakeSchema {
	s := fakeSchema{tables: map[string]bool{"orders": true}, joins: map[string][]string{}}
	for _, f := range []string{"joinField", "j1", "j2", "j3", "country"} {
		s.joins["orders."+f] = []string{"country"}
	}
	return s
}

func eq(field, value string) filter.Predicate {
	return filter.NewPredicate("orders", field, filter.OpIn, ir.IRString(value))
}

func TestSplit_Nil(t *testing.T) {
	s := newFakeSchema()
	res := Split(s, s, nil)
	assert.True(t, res.Empty())
	assert.Nil(t, res.Combined())
}

func TestSplit_ConcreteScenario(t *testing.T) {
	s := newFakeSchema()
	noJoin := eq("noJoinField", "x")
	join := eq("joinField", "y")

	res := Split(s, s, filter.And{Left: noJoin, Right: join})

	assert.True(t, filter.Equal(join, res.Outer), "outer: %s", filter.String(res.Outer))
	assert.True(t, filter.Equal(noJoin, res.Inner), "inner: %s", filter.String(res.Inner))
}

func TestSplit_PredicatePlacement(t *testing.T) {
	s := newFakeSchema()

	local := eq("region", "west")
	res := Split(s, s, local)
	assert.Nil(t, res.Outer)
	assert.True(t, filter.Equal(local, res.Inner))

	joined := eq("joinField", "US")
	res = Split(s, s, joined)
	assert.True(t, filter.Equal(joined, res.Outer))
	assert.Nil(t, res.Inner)
}

func TestSplit_UnknownTableIsOuter(t *testing.T) {
	s := newFakeSchema()
	p := filter.NewPredicate("mystery", "region", filter.OpIn, ir.IRString("west"))

	res := Split(s, s, p)
	assert.True(t, filter.Equal(p, res.Outer))
	assert.Nil(t, res.Inner)
}

func TestSplit_AndDistributes(t *testing.T) {
	s := newFakeSchema()
	l := filter.And{Left: eq("a", "1"), Right: eq("j1", "1")}
	r := filter.And{Left: eq("j2", "2"), Right: eq("b", "2")}

	res := Split(s, s, filter.And{Left: l, Right: r})
	ls, rs := Split(s, s, l), Split(s, s, r)

	assert.True(t, filter.Equal(filter.AndOf(ls.Outer, rs.Outer), res.Outer))
	assert.True(t, filter.Equal(filter.AndOf(ls.Inner, rs.Inner), res.Inner))
}

func TestSplit_AndAllInner(t *testing.T) {
	s := newFakeSchema()
	e := filter.And{Left: eq("a", "1"), Right: eq("b", "2")}

	res := Split(s, s, e)
	assert.Nil(t, res.Outer)
	assert.True(t, filter.Equal(e, res.Inner))
}

func TestSplit_OrForcesOuter(t *testing.T) {
	s := newFakeSchema()
	local := eq("region", "west")
	joined := eq("joinField", "US")

	tests := []struct {
		name string
		expr filter.Or
		want filter.Expression
	}{
		{
			name: "right side joins",
			expr: filter.Or{Left: local, Right: joined},
			want: filter.Or{Left: local, Right: joined},
		},
		{
			name: "left side joins",
			expr: filter.Or{Left: joined, Right: local},
			want: filter.Or{Left: joined, Right: local},
		},
		{
			name: "split and is re-joined",
			expr: filter.Or{Left: filter.And{Left: eq("a", "1"), Right: eq("j1", "1")}, Right: eq("b", "2")},
			// (a AND j1) splits to outer j1 / inner a, and is recombined as (j1 AND a).
			want: filter.Or{Left: filter.And{Left: eq("j1", "1"), Right: eq("a", "1")}, Right: eq("b", "2")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Split(s, s, tt.expr)
			assert.Nil(t, res.Inner)
			assert.True(t, filter.Equal(tt.want, res.Outer), "outer: %s", filter.String(res.Outer))

			ls, rs := Split(s, s, tt.expr.Left), Split(s, s, tt.expr.Right)
			assert.True(t, filter.Equal(filter.OrOf(ls.Combined(), rs.Combined()), res.Outer))
		})
	}
}

func TestSplit_OrStaysInner(t *testing.T) {
	s := newFakeSchema()
	e := filter.Or{Left: eq("a", "1"), Right: filter.And{Left: eq("b", "2"), Right: eq("c", "3")}}

	res := Split(s, s, e)
	assert.Nil(t, res.Outer)
	assert.True(t, filter.Equal(e, res.Inner))
}

func TestSplit_NotOverPredicate(t *testing.T) {
	s := newFakeSchema()
	prefix := filter.NewPredicate("orders", "j1", filter.OpPrefix, ir.IRString("U"))

	res := Split(s, s, filter.Not{Negated: prefix})
	assert.True(t, filter.Equal(filter.Not{Negated: prefix}, res.Outer))
	assert.Nil(t, res.Inner)

	// A negatable operator is complemented by normalization, leaving no Not.
	res = Split(s, s, filter.Not{Negated: eq("region", "west")})
	assert.Nil(t, res.Outer)
	assert.True(t, filter.Equal(
		filter.NewPredicate("orders", "region", filter.OpNotIn, ir.IRString("west")), res.Inner))
}

func TestSplit_NotOverMixedIsNormalizedAway(t *testing.T) {
	s := newFakeSchema()
	// NOT (a AND j1) normalizes to (a notin OR j1 notin), which is an outer OR.
	e := filter.Not{Negated: filter.And{Left: eq("a", "1"), Right: eq("j1", "1")}}

	res, err := New(s, s).SplitChecked(e)
	require.NoError(t, err)
	assert.Nil(t, res.Inner)
	assert.True(t, filter.Equal(filter.Or{
		Left:  eq("a", "1").WithOperator(filter.OpNotIn),
		Right: eq("j1", "1").WithOperator(filter.OpNotIn),
	}, res.Outer), "outer: %s", filter.String(res.Outer))
}

// Without a normalizer that pushes negation down, a Not can wrap a mixed
// subtree. The unchecked split negates each side independently, which is not
// equivalent to the original; the checked split refuses.
func TestSplit_MixedNegationLimitation(t *testing.T) {
	s := newFakeSchema()
	identity := filter.NormalizerFunc(func(e filter.Expression) filter.Expression { return e })
	a, j := eq("a", "1"), eq("j1", "1")
	e := filter.Not{Negated: filter.And{Left: a, Right: j}}

	splitter := &Splitter{Oracle: s, Metadata: s, Normalizer: identity}

	res := splitter.Split(e)
	assert.True(t, filter.Equal(filter.Not{Negated: j}, res.Outer))
	assert.True(t, filter.Equal(filter.Not{Negated: a}, res.Inner))

	// a=false, j1=true satisfies NOT (a AND j1) but not (NOT j1 AND NOT a).
	assign := map[string]bool{"a": false, "j1": true}
	assert.True(t, eval(e, assign))
	assert.False(t, eval(res.Combined(), assign))

	_, err := splitter.SplitChecked(e)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMixedNegation))
	assert.Contains(t, err.Error(), "NOT (orders.a")
}

func TestSplit_CheckedAcceptsNormalizedInput(t *testing.T) {
	s := newFakeSchema()
	identity := filter.NormalizerFunc(func(e filter.Expression) filter.Expression { return e })
	splitter := &Splitter{Oracle: s, Metadata: s, Normalizer: identity}

	e := filter.And{Left: filter.Not{Negated: eq("a", "1")}, Right: filter.Not{Negated: eq("j1", "1")}}
	require.True(t, filter.IsNormalized(e))

	res, err := splitter.SplitChecked(e)
	require.NoError(t, err)
	assert.True(t, filter.Equal(filter.Not{Negated: eq("a", "1")}, res.Inner))
	assert.True(t, filter.Equal(filter.Not{Negated: eq("j1", "1")}, res.Outer))
}

func TestSplit_CheckedAgreesWithUncheckedWhenSound(t *testing.T) {
	s := newFakeSchema()
	e := filter.And{
		Left:  filter.Not{Negated: filter.Or{Left: eq("a", "1"), Right: eq("b", "2")}},
		Right: filter.Not{Negated: eq("j2", "x")},
	}

	splitter := New(s, s)
	checked, err := splitter.SplitChecked(e)
	require.NoError(t, err)
	assert.Equal(t, splitter.Split(e), checked)
}

func TestClassify(t *testing.T) {
	s := newFakeSchema()
	splitter := New(s, s)

	assert.Equal(t, PlaceInner, splitter.Classify(eq("region", "west")))
	assert.Equal(t, PlaceOuter, splitter.Classify(eq("country", "US")))
	assert.Equal(t, "inner", PlaceInner.String())
	assert.Equal(t, "outer", PlaceOuter.String())
}

// eval interprets a filter over boolean field assignments: a predicate with a
// positive operator is assign[field], its complement is the negation.
func eval(e filter.Expression, assign map[string]bool) bool {
	switch x := e.(type) {
	case nil:
		return true
	case filter.Predicate:
		v := assign[x.Field]
		if x.Operator == filter.OpNotIn {
			return !v
		}
		return v
	case filter.And:
		return eval(x.Left, assign) && eval(x.Right, assign)
	case filter.Or:
		return eval(x.Left, assign) || eval(x.Right, assign)
	case filter.Not:
		return !eval(x.Negated, assign)
	default:
		panic(fmt.Sprintf("unexpected %T", e))
	}
}

var randomFields = []string{"a", "b", "c", "j1", "j2", "j3"}

func randomExpr(r *rand.Rand, depth int) filter.Expression {
	if depth == 0 || r.IntN(4) == 0 {
		field := randomFields[r.IntN(len(randomFields))]
		if r.IntN(3) == 0 {
			return filter.NewPredicate("orders", field, filter.OpPrefix, ir.IRString("x"))
		}
		return eq(field, "x")
	}
	switch r.IntN(3) {
	case 0:
		return filter.And{Left: randomExpr(r, depth-1), Right: randomExpr(r, depth-1)}
	case 1:
		return filter.Or{Left: randomExpr(r, depth-1), Right: randomExpr(r, depth-1)}
	default:
		return filter.Not{Negated: randomExpr(r, depth-1)}
	}
}

func allAssignments(fn func(map[string]bool)) {
	n := len(randomFields)
	for mask := 0; mask < 1<<n; mask++ {
		assign := make(map[string]bool, n)
		for i, f := range randomFields {
			assign[f] = mask&(1<<i) != 0
		}
		fn(assign)
	}
}

func TestSplit_RandomizedEquivalence(t *testing.T) {
	s := newFakeSchema()
	r := rand.New(rand.NewPCG(42, 7))

	for i := 0; i < 300; i++ {
		e := randomExpr(r, 5)
		res, err := New(s, s).SplitChecked(e)
		require.NoError(t, err, "expr %s", filter.String(e))

		// The inner fragment never touches a joined field.
		for _, ref := range filter.Fields(res.Inner) {
			assert.Empty(t, s.ResolvedJoins(ref.Table, ref.Field), "inner %s", filter.String(res.Inner))
		}

		allAssignments(func(assign map[string]bool) {
			if eval(e, assign) != eval(res.Combined(), assign) {
				t.Fatalf("split of %s is not equivalent under %v: outer=%s inner=%s",
					filter.String(e), assign, filter.String(res.Outer), filter.String(res.Inner))
			}
		})
	}
}
