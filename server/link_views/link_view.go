package link_views

import (
	"html/template"
	"log"
	"strings"

	"linkboard/prop_cache"
	"linkboard/server/syncview"

	channerics "github.com/niceyeti/channerics/channels"
)

// LinkView renders the monitored links as a list of anchors. Each anchor
// is cold-rendered once into the page template; thereafter the view diffs
// fresh display snapshots against a server-side mirror of the element and
// publishes only the changed attributes as ele-updates.
type LinkView struct {
	id      string
	updates <-chan []syncview.EleUpdate
	sync    *syncview.Synchronizer
	eles    map[string]*linkEle
}

func NewLinkView(
	done <-chan struct{},
	links <-chan []Link,
	policy syncview.EscapePolicy,
) (lv *LinkView) {
	lv = &LinkView{
		id:   "linkboard",
		sync: syncview.NewSynchronizer(anchorFieldMap(), policy),
		eles: map[string]*linkEle{},
	}
	lv.updates = channerics.Convert(done, links, lv.onUpdate)
	return
}

// Updates returns the warm ele-update channel for this view.
func (lv *LinkView) Updates() <-chan []syncview.EleUpdate {
	return lv.updates
}

// anchorFieldMap is the fixed field table shared by both render paths.
// Tag, id and class are set-once: serialized with the element, never
// patched. Tooltip and content carry user-facing text and are escapable.
func anchorFieldMap() *syncview.FieldMap {
	fm, err := syncview.NewFieldMap(
		syncview.FieldSpec{Name: "tag", Kind: syncview.TagField, Required: true, SetOnce: true},
		syncview.FieldSpec{Name: "id", Kind: syncview.AttrField, SetOnce: true},
		syncview.FieldSpec{Name: "class", Kind: syncview.AttrField, SetOnce: true},
		syncview.FieldSpec{Name: "href", Kind: syncview.AttrField},
		syncview.FieldSpec{Name: "target", Kind: syncview.AttrField},
		syncview.FieldSpec{Name: "rel", Kind: syncview.AttrField},
		syncview.FieldSpec{Name: "ping", Kind: syncview.AttrField},
		syncview.FieldSpec{Name: "download", Kind: syncview.AttrField},
		syncview.FieldSpec{Name: "tooltip", Kind: syncview.AttrField, Attr: "title", Escape: true},
		syncview.FieldSpec{Name: "content", Kind: syncview.TextField, Required: true, Escape: true},
	)
	if err != nil {
		// The table is a compile-time constant; a bad entry is a programming error.
		panic(err)
	}
	return fm
}

// linkEle is the per-anchor state: the property cache holding its raw and
// computed values, the server-side mirror of the live element, and the
// previous snapshot used as the warm path's diff baseline.
type linkEle struct {
	cache  *prop_cache.Cache
	mirror *syncview.MemoryNode
	prev   *syncview.Snapshot
}

// newLinkEle declares the computed entries deriving display values from
// the raw link properties. Raw names are distinct from the computed names
// so the logical field names stay free for the field map.
func newLinkEle() *linkEle {
	c := prop_cache.NewCache()
	declare := func(name string, deps []string, fn prop_cache.ComputeFunc) {
		if err := c.Declare(name, deps, fn); err != nil {
			// Fixed declaration table; see anchorFieldMap.
			panic(err)
		}
	}

	declare("content", []string{"label", "disabled"}, func(deps prop_cache.Values) any {
		label, _ := deps["label"].(string)
		if disabled, _ := deps["disabled"].(bool); disabled {
			return label + " (down)"
		}
		return label
	})
	// A disabled link drops its href entirely rather than pointing at a
	// dead endpoint; nil means the attribute is absent.
	declare("href", []string{"url", "disabled"}, func(deps prop_cache.Values) any {
		if disabled, _ := deps["disabled"].(bool); disabled {
			return nil
		}
		url, _ := deps["url"].(string)
		if url == "" {
			return nil
		}
		return url
	})
	declare("rel", []string{"relList", "target"}, func(deps prop_cache.Values) any {
		parts, _ := deps["relList"].([]string)
		if target, _ := deps["target"].(string); target == "_blank" && !contains(parts, "noopener") {
			parts = append(parts[:len(parts):len(parts)], "noopener")
		}
		if len(parts) == 0 {
			return nil
		}
		return strings.Join(parts, " ")
	})
	declare("ping", []string{"pingList"}, func(deps prop_cache.Values) any {
		parts, _ := deps["pingList"].([]string)
		if len(parts) == 0 {
			return nil
		}
		return strings.Join(parts, " ")
	})
	declare("tooltip", []string{"tip"}, func(deps prop_cache.Values) any {
		tip, _ := deps["tip"].(string)
		if tip == "" {
			return nil
		}
		return tip
	})

	return &linkEle{cache: c, mirror: syncview.NewMemoryNode()}
}

func contains(parts []string, want string) bool {
	for _, p := range parts {
		if p == want {
			return true
		}
	}
	return false
}

// set writes the link's raw properties. Every write eagerly invalidates
// the computed entries hanging off it; recomputation waits for snapshot().
func (ele *linkEle) set(link Link) error {
	for name, val := range map[string]any{
		"label":    link.Label,
		"url":      link.Href,
		"target":   link.Target,
		"relList":  link.Rel,
		"pingList": link.Ping,
		"download": link.Download,
		"tip":      link.Tooltip,
		"disabled": link.Disabled,
	} {
		if err := ele.cache.Set(name, val); err != nil {
			return err
		}
	}
	return nil
}

// snapshot resolves the current display values into a fresh snapshot.
// Nil computed values are omitted, which the warm path turns into
// attribute removals.
func (ele *linkEle) snapshot(eleId string) *syncview.Snapshot {
	snap := syncview.NewSnapshot().
		Set("tag", "a").
		Set("id", eleId).
		Set("class", "monitor-link")

	for _, name := range []string{"href", "rel", "ping", "tooltip"} {
		val, _ := ele.cache.Get(name)
		if s, ok := val.(string); ok && s != "" {
			snap.Set(name, s)
		}
	}
	// target and download pass through raw; nothing is derived from them here.
	for _, name := range []string{"target", "download"} {
		val, _ := ele.cache.Get(name)
		if s, ok := val.(string); ok && s != "" {
			snap.Set(name, s)
		}
	}
	content, _ := ele.cache.Get("content")
	if s, ok := content.(string); ok {
		snap.Set("content", s)
	}
	return snap
}

func (lv *LinkView) elementId(id string) string {
	return template.HTMLEscapeString(lv.id + "-" + id)
}

// onUpdate returns the set of ele-updates needed for the live page to
// reflect the passed links: per anchor, write the raw properties, resolve
// a fresh snapshot, and warm-patch the mirror and the wire recorder in one
// pass. Anchors with no changed fields contribute nothing.
func (lv *LinkView) onUpdate(links []Link) (updates []syncview.EleUpdate) {
	for _, link := range links {
		ele, ok := lv.eles[link.Id]
		if !ok {
			ele = newLinkEle()
			lv.eles[link.Id] = ele
		}
		if err := ele.set(link); err != nil {
			log.Println("link view:", err)
			continue
		}

		eleId := lv.elementId(link.Id)
		next := ele.snapshot(eleId)
		rec := &syncview.Recorder{}
		if err := lv.sync.UpdateWarm(syncview.Tee(ele.mirror, rec), ele.prev, next); err != nil {
			log.Println("link view:", err)
			continue
		}
		ele.prev = next

		if ops := rec.Ops(); len(ops) > 0 {
			updates = append(updates, syncview.EleUpdate{EleId: eleId, Ops: ops})
		}
	}
	return
}

// renderLink serializes one anchor on the cold path. It builds a throwaway
// element so page requests never race the update goroutine's mirrors; the
// warm path finds the element by the same id thereafter.
func (lv *LinkView) renderLink(link Link) (template.HTML, error) {
	ele := newLinkEle()
	if err := ele.set(link); err != nil {
		return "", err
	}
	em := syncview.NewMarkupEmitter()
	if err := lv.sync.RenderCold(ele.snapshot(lv.elementId(link.Id)), em); err != nil {
		return "", err
	}
	return template.HTML(em.String()), nil
}

// Parse adds this view's template to the passed parent template.
// The template executes against []Link, the latest view-model.
func (lv *LinkView) Parse(t *template.Template) (name string, err error) {
	name = lv.id
	addedMap := template.FuncMap{
		"renderLink": lv.renderLink,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div id="` + lv.id + `">
			<ul class="monitor-links">
			{{ range . }}
				<li>{{ renderLink . }}</li>
			{{ end }}
			</ul>
		</div>
		{{ end }}`)
	return
}
