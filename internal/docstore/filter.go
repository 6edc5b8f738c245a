package docstore

// Op is a filter predicate kind.
type Op int

const (
	// OpEq matches documents whose field equals Value (nil matches null).
	OpEq Op = iota
	// OpPrefix matches string fields starting with any of Prefixes.
	OpPrefix
)

// Cond is one predicate of a Filter.
type Cond struct {
	Field    string
	Op       Op
	Value    any
	Prefixes []string
}

// Filter is a conjunction of conditions.
type Filter []Cond

// Where builds a filter from conditions.
func Where(conds ...Cond) Filter {
	return Filter(conds)
}

func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// HasPrefix matches when the field starts with any of the prefixes. With no
// prefixes it matches nothing.
func HasPrefix(field string, prefixes ...string) Cond {
	return Cond{Field: field, Op: OpPrefix, Prefixes: prefixes}
}

// And returns a new filter with extra conditions appended.
func (f Filter) And(conds ...Cond) Filter {
	out := make(Filter, 0, len(f)+len(conds))
	out = append(out, f...)
	return append(out, conds...)
}
