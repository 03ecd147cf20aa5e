package bind

// RootScopeName is the name of scope 0.
const RootScopeName = "root"

// Scope is one level of the binding stack. Bindings keep declaration order.
type Scope struct {
	name     string
	bindings map[string]*Binding
	order    []string
}

func newScope(name string) *Scope {
	return &Scope{
		name:     name,
		bindings: make(map[string]*Binding),
	}
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Len returns the number of bindings declared in this scope.
func (s *Scope) Len() int {
	return len(s.order)
}

// Get returns the binding declared in this scope, or nil.
func (s *Scope) Get(name string) *Binding {
	return s.bindings[name]
}

// Bindings returns the scope's bindings in declaration order.
func (s *Scope) Bindings() []*Binding {
	out := make([]*Binding, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.bindings[name])
	}
	return out
}

func (s *Scope) add(b *Binding) {
	s.bindings[b.name] = b
	s.order = append(s.order, b.name)
}

func (s *Scope) clone() *Scope {
	c := newScope(s.name)
	for _, name := range s.order {
		c.add(s.bindings[name].clone())
	}
	return c
}
