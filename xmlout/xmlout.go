// Package xmlout writes validated resources as DSP XML.
package xmlout

import (
	"bufio"
	"encoding/xml"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/validate"
	"github.com/pkg/errors"
)

const (
	Namespace      = "https://dasch.swiss/schema"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation = "https://dasch.swiss/schema https://raw.githubusercontent.com/dasch-swiss/dsp-tools/main/src/dsp_tools/resources/schema/data.xsd"
)

// Document is the content of one output file: every row of one resource
// class.
type Document struct {
	Shortcode       string
	DefaultOntology string
	Resource        *datamodel.Resource
	// SetPermissions adds the standard permission definitions.
	SetPermissions bool
	// ResourcesFolder prefixes relative bitstream paths.
	ResourcesFolder string
	Rows            []validate.Resource
}

type tags struct{ prop, value string }

var kindTags = map[datamodel.ValueKind]tags{
	datamodel.KindText:           {"text-prop", "text"},
	datamodel.KindDate:           {"date-prop", "date"},
	datamodel.KindURI:            {"uri-prop", "uri"},
	datamodel.KindGeoname:        {"geoname-prop", "geoname"},
	datamodel.KindDecimal:        {"decimal-prop", "decimal"},
	datamodel.KindColor:          {"color-prop", "color"},
	datamodel.KindInteger:        {"integer-prop", "integer"},
	datamodel.KindBoolean:        {"boolean-prop", "boolean"},
	datamodel.KindTime:           {"time-prop", "time"},
	datamodel.KindList:           {"list-prop", "list"},
	datamodel.KindRepresentation: {"resptr-prop", "resptr"},
	datamodel.KindResourceLink:   {"resptr-prop", "resptr"},
}

// permission grants per group of the standard definitions.
var permissionGrants = map[string][][2]string{
	validate.ResourceDefault: {
		{"UnknownUser", "V"}, {"KnownUser", "V"}, {"ProjectMember", "D"}, {"ProjectAdmin", "CR"},
	},
	validate.ResourceRestricted: {
		{"KnownUser", "RV"}, {"ProjectMember", "D"}, {"ProjectAdmin", "CR"},
	},
	validate.PropertyDefault: {
		{"UnknownUser", "V"}, {"KnownUser", "V"}, {"ProjectMember", "D"}, {"ProjectAdmin", "CR"},
	},
	validate.PropertyRestricted: {
		{"KnownUser", "RV"}, {"ProjectMember", "D"}, {"ProjectAdmin", "CR"},
	},
}

// writer tracks the first error so that element helpers can be chained.
type writer struct {
	enc *xml.Encoder
	buf *bufio.Writer
	err error
}

func (w *writer) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *writer) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *writer) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) text(s string) {
	w.token(xml.CharData(s))
}

// raw writes s unescaped. s must be well-formed XML content.
func (w *writer) raw(s string) {
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err == nil {
		_, w.err = w.buf.WriteString(s)
	}
}

func (w *writer) element(name, content string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	w.text(content)
	w.end(name)
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// optional appends the attribute only if value is set.
func optional(attrs []xml.Attr, name, value string) []xml.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, attr(name, value))
}

// Name is the qualified name of an ontology entity as written in the
// document.
func (d *Document) Name(ontology, name string) string {
	if ontology == "" || ontology == d.DefaultOntology {
		return ":" + name
	}
	return ontology + ":" + name
}

// Write writes doc to out.
func Write(out io.Writer, doc *Document) error {
	buf := bufio.NewWriter(out)
	w := &writer{enc: xml.NewEncoder(buf), buf: buf}
	w.enc.Indent("", "  ")
	w.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)})
	w.start("knora",
		attr("xmlns", Namespace),
		attr("xmlns:xsi", XSINamespace),
		attr("xsi:schemaLocation", SchemaLocation),
		attr("shortcode", doc.Shortcode),
		attr("default-ontology", doc.DefaultOntology),
	)
	if doc.SetPermissions {
		for _, id := range validate.PermissionIDs {
			w.start("permissions", attr("id", id))
			for _, g := range permissionGrants[id] {
				w.element("allow", g[1], attr("group", g[0]))
			}
			w.end("permissions")
		}
	}
	for i := range doc.Rows {
		doc.resource(w, &doc.Rows[i])
	}
	w.end("knora")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err == nil {
		w.err = buf.WriteByte('\n')
	}
	if w.err == nil {
		w.err = buf.Flush()
	}
	return w.err
}

func (d *Document) resource(w *writer, r *validate.Resource) {
	attrs := []xml.Attr{
		attr("label", r.Label),
		attr("id", r.ID),
		attr("restype", d.Name(d.Resource.Ontology, d.Resource.Name)),
	}
	attrs = optional(attrs, "permissions", r.Permissions)
	attrs = optional(attrs, "iri", r.IRI)
	attrs = optional(attrs, "ark", r.ARK)
	w.start("resource", attrs...)
	if b := r.Bitstream; b != nil {
		var battrs []xml.Attr
		battrs = optional(battrs, "copyright_holder", b.CopyrightHolder)
		battrs = optional(battrs, "authorship", b.Authorship)
		battrs = optional(battrs, "license", b.License)
		battrs = optional(battrs, "permissions", b.Permissions)
		w.element("bitstream", d.bitstreamPath(b.Path), battrs...)
	}
	for _, f := range r.Values {
		d.field(w, f)
	}
	w.end("resource")
}

func (d *Document) bitstreamPath(p string) string {
	if d.ResourcesFolder == "" || path.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return path.Join(filepath.ToSlash(d.ResourcesFolder), p)
}

func (d *Document) field(w *writer, f validate.Field) {
	tg := kindTags[f.Property.Type.Kind]
	attrs := []xml.Attr{attr("name", d.Name(f.Property.Ontology, f.Property.Name))}
	if f.Property.Type.Kind == datamodel.KindList {
		attrs = append(attrs, attr("list", f.Property.ListName))
	}
	w.start(tg.prop, attrs...)
	for _, v := range f.Values {
		var vattrs []xml.Attr
		vattrs = optional(vattrs, "permissions", v.Permissions)
		vattrs = optional(vattrs, "encoding", v.Encoding)
		vattrs = optional(vattrs, "comment", v.Comment)
		if v.Encoding == "xml" {
			w.start(tg.value, vattrs...)
			w.raw(v.Text)
			w.end(tg.value)
			continue
		}
		w.element(tg.value, v.Text, vattrs...)
	}
	w.end(tg.prop)
}

// FileName is the name of the file WriteFile writes doc to.
func FileName(doc *Document) string {
	return doc.Resource.Name + ".xml"
}

// WriteFile writes doc into dir, creating dir if needed, and returns the
// path of the file.
func WriteFile(dir string, doc *Document) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", dspxml.IOError(err, "creating output directory")
	}
	fname := filepath.Join(dir, FileName(doc))
	f, err := os.Create(fname)
	if err != nil {
		return "", dspxml.IOError(err, "creating "+fname)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return "", dspxml.IOError(errors.Wrap(err, "writing xml"), fname)
	}
	return fname, dspxml.IOError(f.Close(), "closing "+fname)
}
