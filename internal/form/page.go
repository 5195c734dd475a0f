package form

import "sync"

var _ Surface = (*Page)(nil)

// Page is an in-memory Surface. It keeps field values, the inline error of
// each field and the focused field, and dispatches events to the handlers
// registered on it.
type Page struct {
	id       string
	autoSave bool

	mu      sync.RWMutex
	fields  []Field
	index   map[string]int
	errors  map[string]string
	focused string

	blur      map[string][]func()
	input     map[string][]func()
	anyInput  []func()
	submit    []func() bool
	submitted []func()
}

// NewPage builds a page from fields. Fields with an empty or duplicated
// name are ignored; the first occurrence of a name wins.
func NewPage(id string, autoSave bool, fields ...Field) *Page {
	p := &Page{
		id:       id,
		autoSave: autoSave,
		index:    make(map[string]int, len(fields)),
		errors:   make(map[string]string),
		blur:     make(map[string][]func()),
		input:    make(map[string][]func()),
	}
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if _, dup := p.index[f.Name]; dup {
			continue
		}
		p.index[f.Name] = len(p.fields)
		p.fields = append(p.fields, f)
	}
	return p
}

func (p *Page) ID() string     { return p.id }
func (p *Page) AutoSave() bool { return p.autoSave }

func (p *Page) Fields() []Field {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Field(nil), p.fields...)
}

func (p *Page) Field(name string) (Field, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.index[name]
	if !ok {
		return Field{}, false
	}
	return p.fields[i], true
}

func (p *Page) SetValue(name, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[name]
	if !ok {
		return false
	}
	p.fields[i].Value = value
	return true
}

func (p *Page) MarkValidity(name string, res ValidationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[name]; !ok {
		return
	}
	if res.Valid {
		delete(p.errors, name)
		return
	}
	p.errors[name] = res.Message
}

func (p *Page) Focus(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[name]; ok {
		p.focused = name
	}
}

func (p *Page) OnBlur(name string, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blur[name] = append(p.blur[name], fn)
}

func (p *Page) OnInput(name string, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input[name] = append(p.input[name], fn)
}

func (p *Page) OnAnyInput(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anyInput = append(p.anyInput, fn)
}

func (p *Page) OnSubmit(fn func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submit = append(p.submit, fn)
}

func (p *Page) OnSubmitted(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, fn)
}

// Blur dispatches a blur event for the named field.
func (p *Page) Blur(name string) {
	p.mu.RLock()
	handlers := append([]func(){}, p.blur[name]...)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}

// Input sets the field value and dispatches an input event: first the
// field's own handlers, then the form-level ones. It reports false for an
// unknown field, in which case nothing is dispatched.
func (p *Page) Input(name, value string) bool {
	if !p.SetValue(name, value) {
		return false
	}
	p.mu.RLock()
	handlers := append([]func(){}, p.input[name]...)
	handlers = append(handlers, p.anyInput...)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
	return true
}

// Submit runs every submit guard and, when none vetoed, the submitted
// handlers. It reports whether the submission proceeds.
func (p *Page) Submit() bool {
	p.mu.RLock()
	guards := append([]func() bool{}, p.submit...)
	after := append([]func(){}, p.submitted...)
	p.mu.RUnlock()

	proceed := true
	for _, fn := range guards {
		if !fn() {
			proceed = false
		}
	}
	if !proceed {
		return false
	}
	for _, fn := range after {
		fn()
	}
	return true
}

// Error returns the inline error currently rendered for a field.
func (p *Page) Error(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	msg, ok := p.errors[name]
	return msg, ok
}

// Errors returns a copy of every rendered inline error.
func (p *Page) Errors() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.errors))
	for k, v := range p.errors {
		out[k] = v
	}
	return out
}

// Focused returns the name of the focused field, or "".
func (p *Page) Focused() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.focused
}

// Values returns the current value of every field.
func (p *Page) Values() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(Snapshot, len(p.fields))
	for _, f := range p.fields {
		out[f.Name] = f.Value
	}
	return out
}
