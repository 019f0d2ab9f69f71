package lowering

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

// tableEntry is one name in FROM scope: the base table or a join target.
type tableEntry struct {
	name  string
	alias string // empty when the table is unaliased
	base  bool   // true for the FROM table (its columns live at the root)
}

func (t tableEntry) label() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// scope tracks which tables are in lexical scope for identifier
// resolution, so a qualified reference inside a subquery can be told
// apart from a correlated reference to the enclosing query.
type scope struct {
	entries []tableEntry
	outer   *scope // enclosing query's scope, nil at the top level
}

func newScope(outer *scope) *scope {
	return &scope{outer: outer}
}

func (s *scope) add(name, alias string, base bool) {
	s.entries = append(s.entries, tableEntry{name: name, alias: alias, base: base})
}

// resolve finds the entry a qualifier refers to, matching alias first
// then table name.
func (s *scope) resolve(qualifier string) (tableEntry, bool) {
	for _, t := range s.entries {
		if t.alias == qualifier {
			return t, true
		}
	}
	for _, t := range s.entries {
		if t.alias == "" && t.name == qualifier {
			return t, true
		}
	}
	return tableEntry{}, false
}

// engine is the shared, per-statement lowering state: a monotonically
// increasing counter for synthetic names (__scalar_1, __in_1, ...), the
// Options the caller supplied, and any CTEs in scope. One engine is
// built per top-level Lower call and threaded through every nested
// lowering — state here is request-scoped, never package-level, keeping
// translation a pure function of its inputs.
type engine struct {
	opts    Options
	counter int
	ctes    map[string]*loweredCTE
}

func newEngine(opts Options) *engine {
	return &engine{opts: opts, ctes: map[string]*loweredCTE{}}
}

func (e *engine) nextName(prefix string) string {
	e.counter++
	return "__" + prefix + "_" + strconv.Itoa(e.counter)
}

// loweredCTE is one WITH-clause entry compiled to its base collection and
// stage prefix, ready to inline wherever the body references it.
type loweredCTE struct {
	name       string
	collection string
	pipeline   []bson.D
}

// stageCollector gathers the $lookup stages a WHERE/projection expression
// hoists out of line (subqueries), plus the synthetic field names those
// stages introduce so the final projection can exclude them again.
type stageCollector struct {
	stages  []bson.D
	cleanup []string
}

func (c *stageCollector) add(stage bson.D) {
	c.stages = append(c.stages, stage)
}

func (c *stageCollector) exclude(field string) {
	c.cleanup = append(c.cleanup, field)
}

// exprContext carries everything expression lowering needs: the engine,
// the lexical scope chain, the collector for hoisted stages, the let
// bindings accumulating for the innermost $lookup, and — after a $group —
// the mapping from aggregate expressions to their accumulator fields.
type exprContext struct {
	eng *engine
	sc  *scope
	pre *stageCollector

	// lets collects correlated references discovered while lowering a
	// subquery body: let-variable name → outer-scope field path.
	lets map[string]string

	// groupFields maps a rendered aggregate/group-key expression to the
	// field name it occupies after the $group stage; non-nil only while
	// lowering HAVING and post-group ORDER BY.
	groupFields map[string]string
}
