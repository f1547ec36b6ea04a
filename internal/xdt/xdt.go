// Package xdt builds the applicationHost.xdt transform that tells the hosting
// runtime to mount an installed extension as a virtual application.
package xdt

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// FileName is the well-known name of the transform inside an extension directory.
const FileName = "applicationHost.xdt"

// Namespace is the XML-Document-Transform namespace bound to the xdt prefix.
const Namespace = "http://schemas.microsoft.com/XML-Document-Transform"

const (
	declaration = `<?xml version="1.0" encoding="utf-8"?>`
	indent      = "  "
)

// Attr is a single attribute. Names are written verbatim, values are escaped.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the document tree. Elements without children are
// written as self-closing tags.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
}

// Elem is shorthand for building an element.
func Elem(name string, attrs []Attr, children ...*Element) *Element {
	return &Element{Name: name, Attrs: attrs, Children: children}
}

// ForExtension returns the transform document for the extension id. The id
// only ever lands in attribute values, so it is escaped on render.
func ForExtension(id string) *Element {
	appPath := "/" + id
	return Elem("configuration", []Attr{{"xmlns:xdt", Namespace}},
		Elem("system.applicationHost", nil,
			Elem("sites", nil,
				Elem("site", []Attr{{"name", "%XDT_SCMSITENAME%"}, {"xdt:Locator", "Match(name)"}},
					Elem("application", []Attr{
						{"path", appPath},
						{"xdt:Locator", "Match(path)"},
						{"xdt:Transform", "Remove"},
					}),
					Elem("application", []Attr{
						{"path", appPath},
						{"applicationPool", "%XDT_APPPOOLNAME%"},
						{"xdt:Transform", "Insert"},
					},
						Elem("virtualDirectory", []Attr{
							{"path", "/"},
							{"physicalPath", "%XDT_EXTENSIONPATH%"},
						}),
					),
				),
			),
		),
	)
}

// Render serializes the document with the XML declaration and two-space
// indentation, ending with a newline.
func Render(root *Element) []byte {
	var b bytes.Buffer
	b.WriteString(declaration)
	b.WriteByte('\n')
	root.write(&b, 0)
	return b.Bytes()
}

// Generate renders the transform for the extension id.
func Generate(id string) []byte {
	return Render(ForExtension(id))
}

func (e *Element) write(b *bytes.Buffer, depth int) {
	b.WriteString(strings.Repeat(indent, depth))
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		// EscapeText never fails when writing to a bytes.Buffer.
		_ = xml.EscapeText(b, []byte(a.Value))
		b.WriteByte('"')
	}
	if len(e.Children) == 0 {
		b.WriteString("/>\n")
		return
	}
	b.WriteString(">\n")
	for _, c := range e.Children {
		c.write(b, depth+1)
	}
	b.WriteString(strings.Repeat(indent, depth))
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteString(">\n")
}
