// Package structured turns free-form model replies into validated JSON values.
package structured

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mohammad-safakhou/threader/models"
)

var ErrNoJSON = errors.New("no JSON object or array found")

// ParseError is returned when a model reply cannot be turned into the expected
// value. Raw keeps the reply verbatim for manual inspection.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable model output: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Schema is a compiled JSON schema plus the name it is advertised under when
// requesting structured output.
type Schema struct {
	Name        string
	Description string
	// Wrap names the property a bare top-level array is moved into before
	// validation, so `[...]` is accepted where `{"<Wrap>": [...]}` is expected.
	Wrap string
	// Check runs after decoding for rules a schema cannot express. Its error
	// becomes the Cause of a *ParseError.
	Check func(out any) error

	doc      map[string]any
	compiled *jsonschema.Schema
}

// unsupportedKeywords are rejected by strict structured output endpoints; they are
// enforced locally instead.
var unsupportedKeywords = []string{"minItems", "maxItems", "minLength", "maxLength", "pattern", "format"}

// Compile parses a JSON schema document.
func Compile(name, description, doc string) (*Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	resource := "mem://threader/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, parsed); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	compiled, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{Name: name, Description: description, doc: m, compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(name, description, doc string) *Schema {
	s, err := Compile(name, description, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Format is the schema as sent to the model, with keywords strict mode refuses
// stripped out.
func (s *Schema) Format() *models.ResponseFormat {
	return &models.ResponseFormat{Name: s.Name, Description: s.Description, Schema: stripKeywords(s.doc)}
}

func stripKeywords(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, val := range schema {
		if contains(unsupportedKeywords, k) {
			continue
		}
		switch k {
		case "properties":
			props, _ := val.(map[string]any)
			stripped := make(map[string]any, len(props))
			for name, sub := range props {
				if m, ok := sub.(map[string]any); ok {
					stripped[name] = stripKeywords(m)
				} else {
					stripped[name] = sub
				}
			}
			out[k] = stripped
		case "items":
			if m, ok := val.(map[string]any); ok {
				out[k] = stripKeywords(m)
			} else {
				out[k] = val
			}
		default:
			out[k] = val
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Decode validates each JSON value found in raw, in order, and unmarshals the
// first one the schema accepts into out. Every failure is a *ParseError whose
// Cause is the rejection of the first candidate.
func (s *Schema) Decode(raw string, out any) error {
	values := candidates(raw)
	if len(values) == 0 {
		return &ParseError{Raw: raw, Cause: ErrNoJSON}
	}
	var first error
	for _, text := range values {
		err := s.decodeOne(text, out)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return &ParseError{Raw: raw, Cause: first}
}

func (s *Schema) decodeOne(text string, out any) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return err
	}
	if arr, ok := inst.([]any); ok && s.Wrap != "" {
		inst = map[string]any{s.Wrap: arr}
	}
	if err := s.compiled.Validate(inst); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}
	normalized, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return err
	}
	if s.Check != nil {
		return s.Check(out)
	}
	return nil
}

// ExtractJSON returns the first complete JSON object or array in s. A surrounding
// markdown code fence is removed first; prose before or after the value is ignored.
func ExtractJSON(s string) (string, error) {
	values := candidates(s)
	if len(values) == 0 {
		return "", ErrNoJSON
	}
	return values[0], nil
}

// candidates lists every complete JSON object or array in s, compacted, in the
// order they start. A value nested inside an earlier one is skipped.
func candidates(s string) []string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	if inner, ok := unfence(s); ok {
		s = inner
	}
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			continue
		}
		out = append(out, buf.String())
		i += int(dec.InputOffset()) - 1
	}
	return out
}

// unfence returns the body of the first ``` or ~~~ block in s.
func unfence(s string) (string, bool) {
	for _, fence := range []string{"```", "~~~"} {
		start := strings.Index(s, fence)
		if start == -1 {
			continue
		}
		rest := s[start+len(fence):]
		nl := strings.IndexByte(rest, '\n')
		if nl == -1 {
			continue
		}
		rest = rest[nl+1:]
		end := strings.Index(rest, fence)
		if end == -1 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}
