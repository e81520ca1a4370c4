package domain

import "strings"

// Params is an insertion-ordered bag of named string values gathered from the
// command line or the HIL dialogue. An empty value counts as absent.
type Params struct {
	keys   []string
	values map[string]string
	lists  map[string][]string
}

func NewParams() *Params {
	return &Params{values: make(map[string]string), lists: make(map[string][]string)}
}

// ParamsFrom builds a bag from alternating key/value pairs.
func ParamsFrom(kv ...string) *Params {
	p := NewParams()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

func (p *Params) touch(key string) {
	for _, k := range p.keys {
		if k == key {
			return
		}
	}
	p.keys = append(p.keys, key)
}

func (p *Params) Set(key, value string) {
	p.touch(key)
	p.values[key] = value
}

// Get returns the value for key, or "" when unset.
func (p *Params) Get(key string) string {
	if p == nil {
		return ""
	}
	return p.values[key]
}

// Has reports whether key holds a non-empty value.
func (p *Params) Has(key string) bool {
	if p == nil {
		return false
	}
	if strings.TrimSpace(p.values[key]) != "" {
		return true
	}
	return len(p.lists[key]) > 0
}

func (p *Params) SetList(key string, values []string) {
	p.touch(key)
	p.lists[key] = append([]string(nil), values...)
}

func (p *Params) List(key string) []string {
	if p == nil {
		return nil
	}
	return p.lists[key]
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Merge copies every non-empty entry of other into p.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		if l, ok := other.lists[k]; ok {
			p.SetList(k, l)
			continue
		}
		if v := other.values[k]; v != "" {
			p.Set(k, v)
		}
	}
}

func (p *Params) String() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	for _, k := range p.keys {
		sb.WriteString("- ")
		sb.WriteString(k)
		sb.WriteString(": ")
		if l, ok := p.lists[k]; ok {
			sb.WriteString(strings.Join(l, ", "))
		} else {
			sb.WriteString(p.values[k])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
