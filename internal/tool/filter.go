package tool

// Filter applies allow/deny rules to tool definitions and tool execution.
type Filter struct {
	allowed map[string]bool // if non-empty, only these tools are allowed
	denied  map[string]bool
}

// NewFilter creates a tool filter from allow/deny lists. Denied names are
// always blocked regardless of the allow list.
func NewFilter(allowed, denied []string) *Filter {
	f := &Filter{
		allowed: make(map[string]bool),
		denied:  make(map[string]bool),
	}
	for _, t := range allowed {
		f.allowed[t] = true
	}
	for _, t := range denied {
		f.denied[t] = true
	}
	return f
}

// IsAllowed returns true if the tool name passes the filter. A nil filter
// allows everything.
func (f *Filter) IsAllowed(name string) bool {
	if f == nil {
		return true
	}
	if f.denied[name] {
		return false
	}
	if len(f.allowed) > 0 {
		return f.allowed[name]
	}
	return true
}

func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.allowed) == 0 && len(f.denied) == 0)
}
