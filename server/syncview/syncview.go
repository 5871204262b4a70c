package syncview

import (
	"errors"
	"fmt"
	"html/template"
)

// ErrMissingField is returned when a snapshot lacks a field the field map
// marks required. The failing call applies no mutations: a malformed
// snapshot must not render a partial element.
var ErrMissingField error = errors.New("snapshot missing required field")

// ErrDuplicateField is returned by NewFieldMap on a logical name collision.
var ErrDuplicateField error = errors.New("duplicate field name")

// FieldKind selects how a logical field reaches the element.
type FieldKind int

const (
	// AttrField maps to a concrete attribute.
	AttrField FieldKind = iota
	// TextField maps to the element's text content.
	TextField
	// TagField names the element type itself. Read on the cold path only.
	TagField
)

// FieldSpec maps one logical field name to its concrete rendering.
type FieldSpec struct {
	Name string
	Kind FieldKind
	// Attr is the concrete attribute name; defaults to Name for AttrField.
	Attr string
	// Required fields must be present in every snapshot.
	Required bool
	// SetOnce fields are serialized on the cold path and never patched,
	// even when a later snapshot carries a different value.
	SetOnce bool
	// Escape marks the field's value as escapable text, subject to the
	// escape policy on both paths.
	Escape bool
}

// FieldMap is the fixed field table a view supplies: the single agreement
// between the cold and warm paths on how logical fields reach the element.
type FieldMap struct {
	specs []FieldSpec
}

// NewFieldMap validates the field table: unique names, at most one tag
// field and one text field.
func NewFieldMap(specs ...FieldSpec) (*FieldMap, error) {
	seen := map[string]bool{}
	tags, texts := 0, 0
	for i, spec := range specs {
		if seen[spec.Name] {
			return nil, fmt.Errorf("field %q: %w", spec.Name, ErrDuplicateField)
		}
		seen[spec.Name] = true

		switch spec.Kind {
		case TagField:
			tags++
		case TextField:
			texts++
		case AttrField:
			if spec.Attr == "" {
				specs[i].Attr = spec.Name
			}
		}
	}
	if tags > 1 {
		return nil, fmt.Errorf("field map declares %d tag fields", tags)
	}
	if texts > 1 {
		return nil, fmt.Errorf("field map declares %d text fields", texts)
	}
	return &FieldMap{specs: specs}, nil
}

// Snapshot is the resolved set of display values one render or update call
// acts on, keyed by logical field name. Build a fresh one per call from
// the property cache; insertion order is preserved for the cold path.
type Snapshot struct {
	order  []string
	values map[string]string
}

func NewSnapshot() *Snapshot {
	return &Snapshot{values: map[string]string{}}
}

// Set records a field value, keeping first-insertion order on rewrites.
func (s *Snapshot) Set(name, value string) *Snapshot {
	if _, ok := s.values[name]; !ok {
		s.order = append(s.order, name)
	}
	s.values[name] = value
	return s
}

func (s *Snapshot) Get(name string) (string, bool) {
	val, ok := s.values[name]
	return val, ok
}

// EscapePolicy is the single decision point for text escaping on both
// render paths. When On, every field marked escapable passes through the
// escape function before reaching the element; no other code path escapes.
type EscapePolicy struct {
	On     bool
	escape func(string) string
}

func NewEscapePolicy(on bool) EscapePolicy {
	return EscapePolicy{On: on, escape: template.HTMLEscapeString}
}

// Apply resolves a field value under the policy.
func (p EscapePolicy) Apply(spec FieldSpec, value string) string {
	if !p.On || !spec.Escape {
		return value
	}
	if p.escape == nil {
		return template.HTMLEscapeString(value)
	}
	return p.escape(value)
}

// Synchronizer keeps a live element consistent with its display snapshot.
// It holds no per-element state: the caller owns the backing node and the
// previous snapshot, and passes both explicitly.
type Synchronizer struct {
	fields *FieldMap
	policy EscapePolicy
}

func NewSynchronizer(fields *FieldMap, policy EscapePolicy) *Synchronizer {
	return &Synchronizer{fields: fields, policy: policy}
}

// validate rejects snapshots lacking a required field before any output
// is produced, so neither path ever half-applies a malformed snapshot.
func (s *Synchronizer) validate(snap *Snapshot) error {
	for _, spec := range s.fields.specs {
		if !spec.Required {
			continue
		}
		if _, ok := snap.Get(spec.Name); !ok {
			return fmt.Errorf("field %q: %w", spec.Name, ErrMissingField)
		}
	}
	return nil
}

// RenderCold fully serializes the element from the snapshot into the emit
// sink: tag, every present field including set-once ones, then content.
// On a non-nil error the emitted output must not be considered live.
func (s *Synchronizer) RenderCold(snap *Snapshot, emit Emitter) error {
	if err := s.validate(snap); err != nil {
		return err
	}

	tag := "div"
	for _, spec := range s.fields.specs {
		if spec.Kind != TagField {
			continue
		}
		if val, ok := snap.Get(spec.Name); ok {
			tag = val
		}
	}
	emit.Open(tag)

	var content *string
	for _, spec := range s.fields.specs {
		val, ok := snap.Get(spec.Name)
		if !ok {
			continue
		}
		resolved := s.policy.Apply(spec, val)
		switch spec.Kind {
		case AttrField:
			emit.Attr(spec.Attr, resolved)
		case TextField:
			// Deferred so attributes land before the start tag closes,
			// regardless of field order.
			content = &resolved
		}
	}
	if content != nil {
		emit.Text(*content)
	}
	emit.Close()
	return nil
}

// UpdateWarm patches the backing node to match next, mutating exactly the
// fields whose values differ from prev. A nil prev (no baseline tracked)
// applies every present field. A field absent from next but present in
// prev is removed from the node. Set-once and tag fields are never
// patched. An identical snapshot is a no-op.
func (s *Synchronizer) UpdateWarm(node Node, prev, next *Snapshot) error {
	if err := s.validate(next); err != nil {
		return err
	}

	for _, spec := range s.fields.specs {
		if spec.Kind == TagField || spec.SetOnce {
			continue
		}

		val, ok := next.Get(spec.Name)
		if !ok {
			if prev != nil {
				if _, had := prev.Get(spec.Name); had && spec.Kind == AttrField {
					node.RemoveAttr(spec.Attr)
				}
			}
			continue
		}
		if prev != nil {
			if old, had := prev.Get(spec.Name); had && old == val {
				continue
			}
		}

		resolved := s.policy.Apply(spec, val)
		switch spec.Kind {
		case AttrField:
			node.SetAttr(spec.Attr, resolved)
		case TextField:
			node.SetText(resolved)
		}
	}
	return nil
}
