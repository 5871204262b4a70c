// syncview keeps a live rendered element consistent with the display
// values a view computes for it, by one of two paths: a cold render that
// fully serializes the element the first time, and warm updates that patch
// only the attributes and content whose values changed since the previous
// snapshot. Both paths share one field table and one escaping policy, so
// the serialized form and the patched form can never drift apart.
package syncview

import (
	"html/template"
	"strings"
)

// OpKind selects the primitive mutation an Op applies to its element.
type OpKind uint8

const (
	OpSetAttr OpKind = iota
	OpRemoveAttr
	OpSetText
)

func (k OpKind) String() string {
	switch k {
	case OpSetAttr:
		return "SetAttr"
	case OpRemoveAttr:
		return "RemoveAttr"
	case OpSetText:
		return "SetText"
	}
	return "Unknown"
}

// Op is a single mutation: set one attribute, remove one attribute, or
// replace the element's text content. Key is empty for OpSetText, Value
// for OpRemoveAttr.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// EleUpdate is an element identifier and the ops to apply to it.
// The client script resolves EleId via getElementById and applies each op.
type EleUpdate struct {
	EleId string
	Ops   []Op
}

// ViewComponent implements server side views: Parse to define the view's
// cold-path template within a parent template, Updates to obtain the chan
// by which warm ele-updates are published.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	Parse(*template.Template) (string, error)
}

// Node is the warm path's handle to a live element, expressed as the
// primitive mutations a host environment supplies. The synchronizer is
// the only writer to a node; that discipline is what keeps the previous
// snapshot a trustworthy diff baseline.
type Node interface {
	SetAttr(key, value string)
	RemoveAttr(key string)
	SetText(content string)
}

// MemoryNode mirrors an element's attributes and text content in memory.
// It backs server-side diffing and tallies mutations, which the tests use
// to verify that unchanged fields are never touched.
type MemoryNode struct {
	Attrs     map[string]string
	Text      string
	Mutations int
}

func NewMemoryNode() *MemoryNode {
	return &MemoryNode{Attrs: map[string]string{}}
}

func (n *MemoryNode) SetAttr(key, value string) {
	n.Attrs[key] = value
	n.Mutations++
}

func (n *MemoryNode) RemoveAttr(key string) {
	delete(n.Attrs, key)
	n.Mutations++
}

func (n *MemoryNode) SetText(content string) {
	n.Text = content
	n.Mutations++
}

// Recorder translates node mutations into ops for the websocket wire.
// It implements Node so one warm pass can feed a server-side mirror and
// the client patch stream together via Tee.
type Recorder struct {
	ops []Op
}

func (r *Recorder) SetAttr(key, value string) {
	r.ops = append(r.ops, Op{Kind: OpSetAttr, Key: key, Value: value})
}

func (r *Recorder) RemoveAttr(key string) {
	r.ops = append(r.ops, Op{Kind: OpRemoveAttr, Key: key})
}

func (r *Recorder) SetText(content string) {
	r.ops = append(r.ops, Op{Kind: OpSetText, Value: content})
}

// Ops returns the mutations recorded so far, in application order.
func (r *Recorder) Ops() []Op {
	return r.ops
}

// Tee fans a single warm pass out to several nodes.
func Tee(nodes ...Node) Node {
	return teeNode(nodes)
}

type teeNode []Node

func (t teeNode) SetAttr(key, value string) {
	for _, n := range t {
		n.SetAttr(key, value)
	}
}

func (t teeNode) RemoveAttr(key string) {
	for _, n := range t {
		n.RemoveAttr(key)
	}
}

func (t teeNode) SetText(content string) {
	for _, n := range t {
		n.SetText(content)
	}
}

// Emitter is the cold path's output sink. Calls arrive in document order:
// Open once, then attributes, then optional text content, then Close.
type Emitter interface {
	Open(tag string)
	Attr(key, value string)
	Text(content string)
	Close()
}

// MarkupEmitter serializes emitter calls into an html fragment. Content
// escaping is the synchronizer's policy decision, not the emitter's; the
// emitter only entity-escapes quotes in attribute positions, which is
// well-formedness of the fragment rather than policy.
type MarkupEmitter struct {
	sb   strings.Builder
	tag  string
	open bool
}

func NewMarkupEmitter() *MarkupEmitter {
	return &MarkupEmitter{}
}

func (e *MarkupEmitter) Open(tag string) {
	e.tag = tag
	e.open = true
	e.sb.WriteString("<")
	e.sb.WriteString(tag)
}

func (e *MarkupEmitter) Attr(key, value string) {
	e.sb.WriteString(" ")
	e.sb.WriteString(key)
	e.sb.WriteString(`="`)
	// A literal quote would terminate the attribute value early.
	e.sb.WriteString(strings.ReplaceAll(value, `"`, "&#34;"))
	e.sb.WriteString(`"`)
}

func (e *MarkupEmitter) closeStartTag() {
	if e.open {
		e.sb.WriteString(">")
		e.open = false
	}
}

func (e *MarkupEmitter) Text(content string) {
	e.closeStartTag()
	e.sb.WriteString(content)
}

func (e *MarkupEmitter) Close() {
	e.closeStartTag()
	e.sb.WriteString("</")
	e.sb.WriteString(e.tag)
	e.sb.WriteString(">")
}

// String returns the fragment built so far. Discard it if the render
// returned an error; a partial fragment is not a live element.
func (e *MarkupEmitter) String() string {
	return e.sb.String()
}
