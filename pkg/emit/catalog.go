package emit

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known element namespaces.
const (
	NamespaceHTML   = ""
	NamespaceSVG    = "http://www.w3.org/2000/svg"
	NamespaceMathML = "http://www.w3.org/1998/Math/MathML"
)

// Catalog errors.
var (
	ErrUnknownElement        = errors.New("emit: unknown element")
	ErrAttributeNotPermitted = errors.New("emit: attribute not permitted")
)

type elementKey struct {
	ns  string
	tag string
}

// Catalog is a static table of elements and the attributes each permits.
// Global attributes, data-* and aria-* are permitted on every element.
//
// A strict catalog rejects elements it does not define; a lenient one
// accepts them with any attribute.
type Catalog struct {
	strict   bool
	global   map[string]struct{}
	elements map[elementKey]map[string]struct{}
}

// NewCatalog creates an empty catalog.
func NewCatalog(strict bool) *Catalog {
	return &Catalog{
		strict:   strict,
		global:   make(map[string]struct{}),
		elements: make(map[elementKey]map[string]struct{}),
	}
}

// Global adds attributes permitted on every element.
func (c *Catalog) Global(attrs ...string) *Catalog {
	for _, a := range attrs {
		c.global[a] = struct{}{}
	}
	return c
}

// Define adds an element in namespace ns with its specific attributes.
// Defining an element twice merges the attribute sets.
func (c *Catalog) Define(ns, tag string, attrs ...string) *Catalog {
	key := elementKey{ns: ns, tag: tag}
	set, ok := c.elements[key]
	if !ok {
		set = make(map[string]struct{}, len(attrs))
		c.elements[key] = set
	}
	for _, a := range attrs {
		set[a] = struct{}{}
	}
	return c
}

// Strict reports whether unknown elements are rejected.
func (c *Catalog) Strict() bool {
	return c.strict
}

// Known reports whether the element is defined.
func (c *Catalog) Known(tag, ns string) bool {
	_, ok := c.elements[elementKey{ns: ns, tag: tag}]
	return ok
}

// CheckElement validates an element name.
func (c *Catalog) CheckElement(tag, ns string) error {
	if c.strict && !c.Known(tag, ns) {
		if ns != "" {
			return fmt.Errorf("%w: %s in %s", ErrUnknownElement, tag, ns)
		}
		return fmt.Errorf("%w: %s", ErrUnknownElement, tag)
	}
	return nil
}

// CheckAttribute validates attribute name on the element.
func (c *Catalog) CheckAttribute(tag, ns, name string) error {
	if c.Permits(tag, ns, name) {
		return nil
	}
	return fmt.Errorf("%w: %s on <%s>", ErrAttributeNotPermitted, name, tag)
}

// Permits reports whether name is allowed on the element.
func (c *Catalog) Permits(tag, ns, name string) bool {
	if _, ok := c.global[name]; ok {
		return true
	}
	if strings.HasPrefix(name, "data-") || strings.HasPrefix(name, "aria-") {
		return true
	}
	set, ok := c.elements[elementKey{ns: ns, tag: tag}]
	if !ok {
		return !c.strict
	}
	_, ok = set[name]
	return ok
}

// DefaultCatalog returns a strict catalog covering common HTML and SVG.
func DefaultCatalog() *Catalog {
	c := NewCatalog(true)
	c.Global(
		"id", "class", "style", "title", "hidden", "lang", "dir",
		"tabindex", "accesskey", "role", "draggable", "contenteditable",
		"spellcheck", "translate", "autofocus", "slot", "part", "inert",
		"popover", "inputmode", "enterkeyhint", "nonce",
	)

	// Structure and text
	for _, tag := range []string{
		"div", "span", "p", "section", "article", "header", "footer", "nav",
		"main", "aside", "h1", "h2", "h3", "h4", "h5", "h6", "strong", "em",
		"b", "i", "u", "s", "code", "pre", "small", "sub", "sup", "mark",
		"figure", "figcaption", "summary", "br", "hr", "ul", "dl", "dt", "dd",
		"caption", "thead", "tbody", "tfoot", "tr", "abbr", "kbd", "samp",
		"var", "address", "legend",
	} {
		c.Define(NamespaceHTML, tag)
	}
	c.Define(NamespaceHTML, "a", "href", "target", "rel", "download", "hreflang", "type", "referrerpolicy", "ping")
	c.Define(NamespaceHTML, "ol", "start", "reversed", "type")
	c.Define(NamespaceHTML, "li", "value")
	c.Define(NamespaceHTML, "blockquote", "cite")
	c.Define(NamespaceHTML, "q", "cite")
	c.Define(NamespaceHTML, "time", "datetime")
	c.Define(NamespaceHTML, "table", "border")
	c.Define(NamespaceHTML, "td", "colspan", "rowspan", "headers")
	c.Define(NamespaceHTML, "th", "colspan", "rowspan", "headers", "scope", "abbr")
	c.Define(NamespaceHTML, "details", "open", "name")
	c.Define(NamespaceHTML, "dialog", "open")

	// Forms
	c.Define(NamespaceHTML, "form", "action", "method", "enctype", "novalidate", "target", "autocomplete", "name")
	c.Define(NamespaceHTML, "label", "for", "form")
	c.Define(NamespaceHTML, "fieldset", "disabled", "form", "name")
	c.Define(NamespaceHTML, "button", "type", "name", "value", "disabled", "form", "formaction", "popovertarget")
	c.Define(NamespaceHTML, "input",
		"type", "name", "value", "placeholder", "disabled", "readonly", "required",
		"checked", "min", "max", "step", "pattern", "minlength", "maxlength",
		"multiple", "accept", "autocomplete", "size", "list", "form", "capture",
	)
	c.Define(NamespaceHTML, "textarea", "name", "rows", "cols", "placeholder", "disabled", "readonly", "required", "minlength", "maxlength", "wrap", "form")
	c.Define(NamespaceHTML, "select", "name", "multiple", "disabled", "required", "size", "form")
	c.Define(NamespaceHTML, "option", "value", "selected", "disabled", "label")
	c.Define(NamespaceHTML, "optgroup", "label", "disabled")
	c.Define(NamespaceHTML, "progress", "value", "max")
	c.Define(NamespaceHTML, "meter", "value", "min", "max", "low", "high", "optimum")
	c.Define(NamespaceHTML, "output", "for", "form", "name")

	// Media
	c.Define(NamespaceHTML, "img", "src", "alt", "width", "height", "loading", "decoding", "srcset", "sizes", "crossorigin", "referrerpolicy")
	c.Define(NamespaceHTML, "video", "src", "controls", "autoplay", "loop", "muted", "poster", "width", "height", "preload", "playsinline")
	c.Define(NamespaceHTML, "audio", "src", "controls", "autoplay", "loop", "muted", "preload")
	c.Define(NamespaceHTML, "source", "src", "type", "srcset", "sizes", "media")
	c.Define(NamespaceHTML, "track", "src", "kind", "srclang", "label", "default")
	c.Define(NamespaceHTML, "canvas", "width", "height")
	c.Define(NamespaceHTML, "iframe", "src", "srcdoc", "width", "height", "name", "allow", "sandbox", "loading", "referrerpolicy")

	// SVG
	presentation := []string{"fill", "stroke", "stroke-width", "opacity", "transform", "fill-rule", "clip-rule", "stroke-linecap", "stroke-linejoin"}
	svg := func(tag string, attrs ...string) {
		c.Define(NamespaceSVG, tag, append(attrs, presentation...)...)
	}
	svg("svg", "viewBox", "width", "height", "xmlns", "preserveAspectRatio")
	svg("g")
	svg("path", "d")
	svg("circle", "cx", "cy", "r")
	svg("ellipse", "cx", "cy", "rx", "ry")
	svg("rect", "x", "y", "width", "height", "rx", "ry")
	svg("line", "x1", "y1", "x2", "y2")
	svg("polyline", "points")
	svg("polygon", "points")
	svg("text", "x", "y", "dx", "dy", "text-anchor", "font-size", "font-family")
	svg("use", "href", "x", "y", "width", "height")
	svg("defs")
	svg("title")

	return c
}
