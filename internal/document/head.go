// Package document applies a page identity to HTML documents on the server.
//
// Head wraps a parsed document and implements sink.IdentitySink over it:
// every head role is upserted, so after any number of applications exactly
// one node per role exists and it lives under <head>.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"homescreen/internal/domain"
)

var (
	// ErrNoHead is returned when the document has no head element to write into
	ErrNoHead = errors.New("document has no head element")
	// ErrNoBody is returned when an embed frame has nowhere to go
	ErrNoBody = errors.New("document has no body element")
)

// embedMarker tags the injector frame so it is only ever added once
const embedMarker = "data-homescreen-embed"

// Head is a mutable HTML document. Not safe for concurrent use.
type Head struct {
	doc *goquery.Document
}

// Parse reads a full HTML document
func Parse(r io.Reader) (*Head, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Head{doc: doc}, nil
}

// FromNode wraps an existing node tree. The tree is mutated in place.
func FromNode(root *html.Node) *Head {
	return &Head{doc: goquery.NewDocumentFromNode(root)}
}

// SetTitle implements sink.IdentitySink. Only HTML title elements are
// considered; SVG and MathML titles elsewhere in the document are left alone.
func (h *Head) SetTitle(_ context.Context, title string) error {
	head, err := h.headNode()
	if err != nil {
		return err
	}

	titles := h.htmlTitles()
	var node *html.Node
	if len(titles) == 0 {
		node = newElement("title")
		head.AppendChild(node)
	} else {
		// A title already under head wins over one misplaced in body
		node = titles[0]
		for _, t := range titles {
			if t.Parent == head {
				node = t
				break
			}
		}
		attachTo(head, node)
		for _, t := range titles {
			if t != node && t.Parent != nil {
				t.Parent.RemoveChild(t)
			}
		}
	}

	for c := node.FirstChild; c != nil; c = node.FirstChild {
		node.RemoveChild(c)
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	return nil
}

// SetIcon implements sink.IdentitySink by upserting the touch icon
func (h *Head) SetIcon(_ context.Context, iconURL string) error {
	return h.Upsert(domain.RoleTouchIcon, iconURL)
}

// SetAppName implements sink.IdentitySink by upserting the PWA title meta
func (h *Head) SetAppName(_ context.Context, name string) error {
	return h.Upsert(domain.RoleAppTitle, name)
}

// Upsert ensures exactly one node of the role exists under head and that its
// value attribute equals value. Matching nodes elsewhere in the document are
// moved under head; surplus matches are removed.
func (h *Head) Upsert(role domain.HeadRole, value string) error {
	head, err := h.headNode()
	if err != nil {
		return err
	}

	matches := h.doc.Find(role.Selector())
	var node *html.Node
	if matches.Length() == 0 {
		node = newElement(role.Element)
		node.Attr = []html.Attribute{{Key: role.KeyAttr, Val: role.KeyValue}}
		head.AppendChild(node)
	} else {
		node = matches.Get(0)
		attachTo(head, node)
		matches.Slice(1, matches.Length()).Remove()
	}

	setAttr(node, role.ValueAttr, value)
	return nil
}

// UpsertEmbedFrame ensures the document carries exactly one zero-height
// iframe loading src in its body.
func (h *Head) UpsertEmbedFrame(src string) error {
	body := h.doc.Find("body")
	if body.Length() == 0 {
		return ErrNoBody
	}

	frames := h.doc.Find("iframe[" + embedMarker + "]")
	var node *html.Node
	if frames.Length() == 0 {
		node = newElement("iframe")
		node.Attr = []html.Attribute{
			{Key: embedMarker, Val: ""},
			{Key: "height", Val: "0"},
			{Key: "width", Val: "0"},
			{Key: "style", Val: "border:0;height:0;width:0;position:absolute"},
			{Key: "aria-hidden", Val: "true"},
			{Key: "tabindex", Val: "-1"},
		}
	} else {
		node = frames.Get(0)
		frames.Slice(1, frames.Length()).Remove()
	}

	attachTo(body.Get(0), node)
	setAttr(node, "src", src)
	return nil
}

// Title returns the text of the first HTML title element, as document.title does
func (h *Head) Title() string {
	titles := h.htmlTitles()
	if len(titles) == 0 {
		return ""
	}
	return goquery.NewDocumentFromNode(titles[0]).Text()
}

// Value returns the value attribute of the first node of the role under head
func (h *Head) Value(role domain.HeadRole) (string, bool) {
	return h.doc.Find("head").First().Find(role.Selector()).First().Attr(role.ValueAttr)
}

// Count returns how many nodes of the role exist anywhere in the document
func (h *Head) Count(role domain.HeadRole) int {
	return h.doc.Find(role.Selector()).Length()
}

// Render writes the document as HTML
func (h *Head) Render(w io.Writer) error {
	for _, n := range h.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	}
	return nil
}

func (h *Head) headNode() (*html.Node, error) {
	head := h.doc.Find("head")
	if head.Length() == 0 {
		return nil, ErrNoHead
	}
	return head.Get(0), nil
}

// htmlTitles returns the HTML-namespace title elements in document order
func (h *Head) htmlTitles() []*html.Node {
	return h.doc.Find("title").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Get(0).Namespace == ""
	}).Nodes
}

func newElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// attachTo moves n under parent unless it already is a direct child
func attachTo(parent, n *html.Node) {
	if n.Parent == parent {
		return
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	parent.AppendChild(n)
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
