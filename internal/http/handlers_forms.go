package http

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/draftstore"
	"expensetracker/internal/form"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
	"expensetracker/internal/viewhelpers"
)

type fieldView struct {
	FormKey     string
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Step        string
	Options     []string
	MaxLength   int
	Required    bool
	Autofocus   bool
	Error       string
	Suggestions []fillButton
}

// fillButton sets form fields client-side from Fill, a JSON object of field
// name to value, and fires the same events typing would.
type fillButton struct {
	Label string
	Fill  string
}

type indicatorView struct {
	FormKey string
	Saved   bool
}

type formView struct {
	Key       string
	Def       forms.Definition
	Fields    []fieldView
	QuickAdd  []fillButton
	Indicator indicatorView
}

type fieldErrorView struct {
	Name  string
	Error string
}

// formView projects a page onto its definition for the templates. Password
// values are never sent back.
func (s *Server) formView(def forms.Definition, page *form.Page, user *auth.Claims) formView {
	values := page.Values()
	focused := page.Focused()
	v := formView{
		Key:       def.Key,
		Def:       def,
		Fields:    make([]fieldView, 0, len(def.Fields)),
		Indicator: indicatorView{FormKey: def.Key},
	}
	for _, f := range def.Fields {
		fv := fieldView{
			FormKey:     def.Key,
			Name:        f.Name,
			Label:       f.Label,
			Type:        strings.ToLower(f.Type),
			Value:       values[f.Name],
			Placeholder: f.Placeholder,
			Step:        f.Step,
			Options:     f.Options,
			MaxLength:   f.MaxLength,
			Required:    f.Required,
			Autofocus:   f.Name == focused,
		}
		if fv.Type == "" {
			fv.Type = "text"
		}
		if fv.Type == "password" {
			fv.Value = ""
		}
		fv.Error, _ = page.Error(f.Name)
		for _, sug := range f.Suggestions {
			if b, ok := newFillButton(sug, map[string]string{f.Name: sug}); ok {
				fv.Suggestions = append(fv.Suggestions, b)
			}
		}
		v.Fields = append(v.Fields, fv)
	}
	for _, q := range def.QuickAdd {
		preset := make(map[string]string, len(q.Values))
		for name, value := range q.Values {
			// Choices missing from the current taxonomy are left alone.
			if f, ok := def.Field(name); ok && len(f.Options) > 0 && !slices.Contains(f.Options, value) {
				continue
			}
			preset[name] = value
		}
		if b, ok := newFillButton(q.Label, preset); ok {
			v.QuickAdd = append(v.QuickAdd, b)
		}
	}
	if def.AutoSave && user != nil {
		v.Indicator.Saved = s.drafts.For(user.UserID()).SavedRecently(draftstore.FormID(page))
	}
	return v
}

func newFillButton(label string, values map[string]string) (fillButton, bool) {
	if len(values) == 0 {
		return fillButton{}, false
	}
	b, err := json.Marshal(values)
	if err != nil {
		return fillButton{}, false
	}
	return fillButton{Label: label, Fill: string(b)}, true
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, def forms.Definition, page *form.Page, flash *Flash) {
	user := auth.UserFromContext(r.Context())
	s.render(w, r, status, "form.html", def.Title, s.formView(def, page, user), flash)
}

// showForm renders a fresh form with its defaults. Auto-save forms of a
// signed-in user then get their draft restored into the fields the
// defaults left empty.
func (s *Server) showForm(w http.ResponseWriter, r *http.Request, def forms.Definition) {
	page := def.NewPage(nil)
	applyDefaults(def, page, s.now())
	if user := auth.UserFromContext(r.Context()); user != nil {
		if id, ok := s.drafts.For(user.UserID()).Attach(r.Context(), page); ok {
			applog.FromContext(r.Context()).DebugContext(r.Context(), "Draft attached",
				applog.FieldFormID, id,
				applog.FieldUserID, user.UserID(),
				applog.FieldOperation, applog.OpRestore)
		}
	}
	s.renderForm(w, r, http.StatusOK, def, page, nil)
}

// submitForm rebuilds the posted form, guards it and submits it. A vetoed
// submission is re-rendered with every error shown and focus on the first
// invalid field, and submitForm reports false. On success the draft is
// already discarded.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request, def forms.Definition) (*form.Page, bool) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return nil, false
	}
	page := def.NewPage(PostedValues(def, r.PostForm))
	s.guard.Attach(page)
	if user := auth.UserFromContext(r.Context()); user != nil && def.AutoSave {
		s.drafts.For(user.UserID()).Bind(page, draftstore.FormID(page))
	}
	if !page.Submit() {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Form submission blocked",
			applog.FieldFormKey, def.Key,
			applog.FieldField, page.Focused(),
			applog.FieldOperation, applog.OpValidate)
		s.renderForm(w, r, http.StatusUnprocessableEntity, def, page, nil)
		return page, false
	}
	return page, true
}

// handleFormEvent serves the per-field blur and input events and the draft
// indicator poll of a rendered form.
func (s *Server) handleFormEvent(w http.ResponseWriter, r *http.Request) {
	def, err := s.forms.Get(r.PathValue("key"))
	if err != nil {
		NotFoundError("Unknown form").Write(w)
		return
	}
	user := auth.UserFromContext(r.Context())
	if def.AutoSave && user == nil {
		NewHTMXResponse().Redirect("/login").Status(http.StatusUnauthorized).Write(w)
		return
	}

	switch r.PathValue("action") {
	case "blur":
		s.handleFieldBlur(w, r, def)
	case "input":
		s.handleFieldInput(w, r, def, user)
	case "draft":
		s.handleDraftIndicator(w, r, def, user)
	default:
		NotFoundError("Unknown form event").Write(w)
	}
}

// eventField parses the posted form and resolves ?field=.
func eventField(w http.ResponseWriter, r *http.Request, def forms.Definition) (forms.FieldDef, bool) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return forms.FieldDef{}, false
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return forms.FieldDef{}, false
	}
	f, ok := def.Field(r.URL.Query().Get("field"))
	if !ok {
		BadRequestError("Unknown field").Write(w)
		return forms.FieldDef{}, false
	}
	return f, true
}

// handleFieldBlur validates the field that lost focus and returns its error
// slot.
func (s *Server) handleFieldBlur(w http.ResponseWriter, r *http.Request, def forms.Definition) {
	f, ok := eventField(w, r, def)
	if !ok {
		return
	}
	page := def.NewPage(PostedValues(def, r.PostForm))
	s.guard.Attach(page)
	page.Blur(f.Name)

	msg, _ := page.Error(f.Name)
	s.writeFieldError(w, r, f.Name, msg, nil)
}

// handleFieldInput clears the field's error and schedules a draft save. Number
// inputs are normalized; when that changes the value the page is told to
// show the normalized one.
func (s *Server) handleFieldInput(w http.ResponseWriter, r *http.Request, def forms.Definition, user *auth.Claims) {
	f, ok := eventField(w, r, def)
	if !ok {
		return
	}
	values := PostedValues(def, r.PostForm)
	raw := values[f.Name]
	value := raw
	if f.Kind() == form.KindNumber {
		value = viewhelpers.NormalizeNumberInput(raw)
	}

	page := def.NewPage(values)
	s.guard.Attach(page)
	if def.AutoSave && user != nil {
		s.drafts.For(user.UserID()).Bind(page, draftstore.FormID(page))
	}
	page.Input(f.Name, value)

	resp := NewHTMXResponse()
	if value != raw {
		resp.TriggerFieldNormalized(f.Name, value)
	}
	msg, _ := page.Error(f.Name)
	s.writeFieldError(w, r, f.Name, msg, resp)
}

func (s *Server) writeFieldError(w http.ResponseWriter, r *http.Request, name, msg string, resp *HTMXResponseBuilder) {
	html, err := s.renderFragment("field_error", fieldErrorView{Name: name, Error: msg})
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Field error render failed", applog.FieldError, err)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.BodyHTML(html).Write(w)
}

// handleDraftIndicator re-renders the "Draft saved" indicator.
func (s *Server) handleDraftIndicator(w http.ResponseWriter, r *http.Request, def forms.Definition, user *auth.Claims) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if !def.AutoSave {
		NotFoundError("Form does not save drafts").Write(w)
		return
	}
	view := indicatorView{
		FormKey: def.Key,
		Saved:   s.drafts.For(user.UserID()).SavedRecently(draftstore.FormID(def.NewPage(nil))),
	}
	html, err := s.renderFragment("draft_indicator", view)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Draft indicator render failed", applog.FieldError, err)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(html).Write(w)
}
