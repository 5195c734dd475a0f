// Package forms loads the declarative form definitions the HTTP host renders
// and rebuilds server-side form surfaces from.
package forms

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"expensetracker/internal/form"
)

var ErrUnknownForm = errors.New("forms: unknown form")

// Definition describes one form.
type Definition struct {
	// Key names the form in URLs. It defaults to the file name.
	Key string `yaml:"key"`

	// ID is the form's declared id; it may be empty.
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Action   string     `yaml:"action"`
	Submit   string     `yaml:"submit"`
	AutoSave bool       `yaml:"auto_save"`
	Fields   []FieldDef `yaml:"fields"`

	// QuickAdd lists one-click presets that fill several fields at once.
	QuickAdd []QuickAdd `yaml:"quick_add"`
}

// QuickAdd is a labelled set of field values.
type QuickAdd struct {
	Label  string            `yaml:"label"`
	Values map[string]string `yaml:"values"`
}

// FieldDef describes one input of a form.
type FieldDef struct {
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Placeholder string   `yaml:"placeholder"`
	Options     []string `yaml:"options"`
	Step        string   `yaml:"step"`
	MaxLength   int      `yaml:"max_length"`

	// OptionsFrom fills Options from a named list at load time.
	OptionsFrom string `yaml:"options_from"`

	// Default is "today" or "now" for date and time inputs, or a literal.
	Default string `yaml:"default"`

	// Suggestions are values offered as buttons next to the input.
	Suggestions []string `yaml:"suggestions"`
}

// Kind maps the field's input type to a validation kind.
func (f FieldDef) Kind() form.Kind { return form.KindFromType(f.Type) }

// NewPage builds a form surface holding values. Fields without a value in
// values start empty.
func (d Definition) NewPage(values map[string]string) *form.Page {
	fields := make([]form.Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, form.Field{
			Name:     f.Name,
			Kind:     f.Kind(),
			Required: f.Required,
			Value:    values[f.Name],
		})
	}
	return form.NewPage(d.ID, d.AutoSave, fields...)
}

// Field returns the definition of the named field.
func (d Definition) Field(name string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Registry holds definitions by key.
type Registry struct {
	defs map[string]Definition
}

// Lists resolves options_from references.
type Lists map[string][]string

// Load parses every .yaml/.yml file under fsys.
func Load(fsys fs.FS, lists Lists) (*Registry, error) {
	reg := &Registry{defs: make(map[string]Definition)}
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("forms: read %s: %w", p, err)
		}
		def, err := Parse(data, strings.TrimSuffix(path.Base(p), path.Ext(p)), lists)
		if err != nil {
			return fmt.Errorf("forms: %s: %w", p, err)
		}
		if _, dup := reg.defs[def.Key]; dup {
			return fmt.Errorf("forms: duplicate form key %q (file %s)", def.Key, p)
		}
		reg.defs[def.Key] = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Parse decodes one definition. defaultKey is used when the document
// declares no key.
func Parse(data []byte, defaultKey string, lists Lists) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse: %w", err)
	}
	def.Key = strings.TrimSpace(def.Key)
	if def.Key == "" {
		def.Key = defaultKey
	}
	if def.Key == "" {
		return Definition{}, errors.New("form has no key")
	}
	if len(def.Fields) == 0 {
		return Definition{}, fmt.Errorf("form %q has no fields", def.Key)
	}
	seen := make(map[string]struct{}, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return Definition{}, fmt.Errorf("form %q: field %d has no name", def.Key, i)
		}
		if _, dup := seen[f.Name]; dup {
			return Definition{}, fmt.Errorf("form %q: duplicate field %q", def.Key, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.OptionsFrom != "" {
			opts, ok := lists[f.OptionsFrom]
			if !ok {
				return Definition{}, fmt.Errorf("form %q: field %q: unknown list %q", def.Key, f.Name, f.OptionsFrom)
			}
			f.Options = append([]string(nil), opts...)
		}
	}
	for i, q := range def.QuickAdd {
		if strings.TrimSpace(q.Label) == "" {
			return Definition{}, fmt.Errorf("form %q: quick add %d has no label", def.Key, i)
		}
		if len(q.Values) == 0 {
			return Definition{}, fmt.Errorf("form %q: quick add %q sets no fields", def.Key, q.Label)
		}
		for name := range q.Values {
			if _, ok := seen[name]; !ok {
				return Definition{}, fmt.Errorf("form %q: quick add %q: unknown field %q", def.Key, q.Label, name)
			}
		}
	}
	return def, nil
}

// Get returns the definition registered under key.
func (r *Registry) Get(key string) (Definition, error) {
	def, ok := r.defs[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownForm, key)
	}
	return def, nil
}

// Keys lists the registered keys in order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
