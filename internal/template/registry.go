// Package template resolves (trigger, locale) pairs to renderable
// notification templates and renders them safely against partial merge
// data.
package template

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/vitacall/notifier/internal/model"
)

// ErrMissingRequiredField is returned when merge data lacks a field the
// template cannot be rendered without. Per-record and permanent: the
// producer supplied an unusable payload.
var ErrMissingRequiredField = errors.New("missing required merge field")

// Rendered is the output of rendering a template.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// source is the authoring form of a template. SMS templates leave
// Subject and HTML empty.
type source struct {
	Subject string
	HTML    string
	Text    string
}

// Template is a parsed, renderable template for one key and locale.
type Template struct {
	Key    string
	Locale string

	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// Registry holds parsed templates per locale and falls back to the
// default locale per key when the requested locale lacks one.
type Registry struct {
	defaultLocale string
	locales       map[string]map[string]*Template
}

// requiredFields lists the merge keys each template cannot render
// without. Everything else is optional and simply omitted when absent.
var requiredFields = map[string][]string{
	"welcome_free_credit":       {"first_name"},
	"welcome_doctor":            {"last_name"},
	"profile_reminder":          {"first_name"},
	"booking_confirmation":      {"patient_first_name", "appointment_datetime_local", "doctor_name", "join_link"},
	"booking_reminder_24h":      {"patient_first_name", "appointment_datetime_local", "doctor_name", "join_link"},
	"doctor_upcoming_1h":        {"patient_name", "appointment_datetime_local"},
	"cancellation_confirmation": {"patient_first_name", "doctor_name", "appointment_datetime_local"},
	"reschedule_confirmation":   {"patient_first_name", "appointment_datetime_local", "doctor_name", "join_link"},
	"post_call_survey":          {"patient_first_name", "doctor_name", "appointment_id"},
	"doctor_no_show_patient":    {"patient_first_name", "doctor_name"},
	"password_reset":            {"first_name", "reset_link"},
	"sms_doctor_10m":            {"join_link"},
	"sms_patient_5m":            {"doctor_name"},
}

// NewRegistry parses all shipped locales. A parse failure is a
// programming error surfaced at startup, not at dispatch time.
func NewRegistry(defaultLocale string) (*Registry, error) {
	r := &Registry{
		defaultLocale: defaultLocale,
		locales:       make(map[string]map[string]*Template),
	}

	for locale, sources := range map[string]map[string]source{
		"en": localeEN,
		"fr": localeFR,
	} {
		parsed := make(map[string]*Template, len(sources))

		for key, src := range sources {
			tmpl, err := parse(key, locale, src)
			if err != nil {
				return nil, fmt.Errorf("parse template %s/%s: %w", locale, key, err)
			}

			parsed[key] = tmpl
		}

		r.locales[locale] = parsed
	}

	if _, ok := r.locales[defaultLocale]; !ok {
		return nil, fmt.Errorf("%w: no templates for default locale %q", model.ErrTemplateMissing, defaultLocale)
	}

	return r, nil
}

// Resolve returns the template for the trigger in the requested locale,
// falling back to the default locale when the requested one lacks the
// key. Only a missing default-locale template is an error.
func (r *Registry) Resolve(trigger model.TriggerCode, locale string) (*Template, error) {
	key, err := trigger.TemplateKey()
	if err != nil {
		return nil, err
	}

	if set, ok := r.locales[locale]; ok {
		if tmpl, ok := set[key]; ok {
			return tmpl, nil
		}
	}

	if tmpl, ok := r.locales[r.defaultLocale][key]; ok {
		return tmpl, nil
	}

	return nil, fmt.Errorf("%w: %s (default locale %s)", model.ErrTemplateMissing, key, r.defaultLocale)
}

// Render executes the template against the merge data. Missing optional
// keys render as empty strings (missingkey=zero), never as a literal
// placeholder; conditional blocks in the sources drop sections whose
// fields are absent. Missing required keys fail with
// ErrMissingRequiredField before any output is produced.
func (t *Template) Render(data map[string]string) (Rendered, error) {
	for _, field := range requiredFields[t.Key] {
		if data[field] == "" {
			return Rendered{}, fmt.Errorf("%w: %s for template %s", ErrMissingRequiredField, field, t.Key)
		}
	}

	var out Rendered

	if t.subject != nil {
		var sb strings.Builder
		if err := t.subject.Execute(&sb, data); err != nil {
			return Rendered{}, fmt.Errorf("render subject %s: %w", t.Key, err)
		}
		out.Subject = sb.String()
	}

	if t.html != nil {
		var hb strings.Builder
		if err := t.html.Execute(&hb, data); err != nil {
			return Rendered{}, fmt.Errorf("render html %s: %w", t.Key, err)
		}
		out.HTML = hb.String()
	}

	var tb strings.Builder
	if err := t.text.Execute(&tb, data); err != nil {
		return Rendered{}, fmt.Errorf("render text %s: %w", t.Key, err)
	}
	out.Text = tb.String()

	return out, nil
}

func parse(key, locale string, src source) (*Template, error) {
	tmpl := &Template{Key: key, Locale: locale}

	if src.Subject != "" {
		subject, err := texttemplate.New(key + ".subject").Option("missingkey=zero").Parse(src.Subject)
		if err != nil {
			return nil, err
		}
		tmpl.subject = subject
	}

	if src.HTML != "" {
		html, err := htmltemplate.New(key + ".html").Option("missingkey=zero").Parse(src.HTML)
		if err != nil {
			return nil, err
		}
		tmpl.html = html
	}

	text, err := texttemplate.New(key + ".text").Option("missingkey=zero").Parse(src.Text)
	if err != nil {
		return nil, err
	}
	tmpl.text = text

	return tmpl, nil
}
