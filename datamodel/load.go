package datamodel

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

type jsonProject struct {
	Project struct {
		Shortcode  string         `json:"shortcode"`
		Shortname  string         `json:"shortname"`
		Lists      []jsonList     `json:"lists"`
		Ontologies []jsonOntology `json:"ontologies"`
	} `json:"project"`
}

type jsonList struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
	Nodes  []jsonNode        `json:"nodes"`
}

type jsonNode struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
	Nodes  []jsonNode        `json:"nodes"`
}

type jsonOntology struct {
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Properties []jsonProperty `json:"properties"`
	Resources  []jsonResource `json:"resources"`
}

type jsonProperty struct {
	Name          string            `json:"name"`
	Object        string            `json:"object"`
	Labels        map[string]string `json:"labels"`
	GUIElement    string            `json:"gui_element"`
	GUIAttributes struct {
		HList string `json:"hlist"`
	} `json:"gui_attributes"`
}

type jsonResource struct {
	Name          string            `json:"name"`
	Super         superList         `json:"super"`
	Labels        map[string]string `json:"labels"`
	Cardinalities []struct {
		Propname    string `json:"propname"`
		Cardinality string `json:"cardinality"`
	} `json:"cardinalities"`
}

// superList accepts either a single super class or a list of them.
type superList []string

func (s *superList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		*s = names
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = []string{name}
	return nil
}

var valueObjects = map[string]ValueKind{
	"TextValue":      KindText,
	"DateValue":      KindDate,
	"UriValue":       KindURI,
	"GeonameValue":   KindGeoname,
	"DecimalValue":   KindDecimal,
	"ColorValue":     KindColor,
	"IntValue":       KindInteger,
	"BooleanValue":   KindBoolean,
	"TimeValue":      KindTime,
	"ListValue":      KindList,
	"Representation": KindRepresentation,
}

var shortcodeRe = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)

// Decode reads a project JSON document.
func Decode(r io.Reader) (*DataModel, error) {
	var jp jsonProject
	if err := json.NewDecoder(r).Decode(&jp); err != nil {
		return nil, dspxml.InputErrorf("decoding data model json: %v", err)
	}
	return build(&jp)
}

// Parse decodes a project JSON document held in memory.
func Parse(data []byte) (*DataModel, error) {
	return Decode(bytes.NewReader(data))
}

// Load reads and decodes the data model from o.
func Load(o dspxml.OpenStringer) (*DataModel, error) {
	data, err := dspxml.ReadAll(o)
	if err != nil {
		return nil, err
	}
	dm, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "data model %s", o)
	}
	return dm, nil
}

func build(jp *jsonProject) (*DataModel, error) {
	p := jp.Project
	if !shortcodeRe.MatchString(p.Shortcode) {
		return nil, dspxml.InputErrorf("project shortcode %q is not 4 hex characters", p.Shortcode)
	}
	dm := &DataModel{
		Shortcode: strings.ToUpper(p.Shortcode),
		Shortname: p.Shortname,
		Lists:     make(map[string]*List),
		props:     make(map[string]*Property),
		res:       make(map[string]*Resource),
	}

	for _, jl := range p.Lists {
		l, err := buildList(jl)
		if err != nil {
			return nil, err
		}
		if _, ok := dm.Lists[l.Name]; ok {
			return nil, dspxml.InputErrorf("list %q is defined twice", l.Name)
		}
		dm.Lists[l.Name] = l
	}

	// resources first so that properties can link to them by bare name.
	supers := make(map[string][]string)
	for _, jo := range p.Ontologies {
		dm.Ontologies = append(dm.Ontologies, Ontology{Name: jo.Name, Label: jo.Label})
		for _, jr := range jo.Resources {
			if _, ok := dm.res[jr.Name]; ok {
				return nil, dspxml.InputErrorf("resource %q is defined twice", jr.Name)
			}
			r := &Resource{Name: jr.Name, Ontology: jo.Name, Labels: jr.Labels}
			dm.res[r.Name] = r
			dm.Resources = append(dm.Resources, r)
			supers[r.Name] = jr.Super
		}
	}
	for _, r := range dm.Resources {
		sc, err := resolveSuper(r.Name, supers, map[string]bool{})
		if err != nil {
			return nil, err
		}
		r.SuperClass = sc
	}

	for _, jo := range p.Ontologies {
		for _, jprop := range jo.Properties {
			prop, err := dm.buildProperty(jo.Name, jprop)
			if err != nil {
				return nil, err
			}
			if _, ok := dm.props[prop.Name]; ok {
				return nil, dspxml.InputErrorf("property %q is defined twice", prop.Name)
			}
			dm.props[prop.Name] = prop
			dm.Properties = append(dm.Properties, prop)
		}
	}

	for _, jo := range p.Ontologies {
		for _, jr := range jo.Resources {
			r := dm.res[jr.Name]
			for _, jc := range jr.Cardinalities {
				name := localName(jc.Propname)
				if _, ok := dm.props[name]; !ok {
					return nil, dspxml.NotFoundErrorf("resource %q has a cardinality on unknown property %q", r.Name, jc.Propname)
				}
				card := Cardinality(jc.Cardinality)
				if !card.valid() {
					return nil, dspxml.InputErrorf("resource %q: invalid cardinality %q for %q", r.Name, jc.Cardinality, jc.Propname)
				}
				r.Cardinalities = append(r.Cardinalities, PropertyCardinality{Property: name, Cardinality: card})
			}
		}
	}
	return dm, nil
}

func resolveSuper(name string, supers map[string][]string, seen map[string]bool) (SuperClass, error) {
	if seen[name] {
		return 0, dspxml.ParsingErrorf("resource %q inherits from itself", name)
	}
	seen[name] = true
	for _, s := range supers[name] {
		if sc, ok := superNames[localName(s)]; ok {
			return sc, nil
		}
		if _, ok := supers[localName(s)]; ok {
			return resolveSuper(localName(s), supers, seen)
		}
	}
	if len(supers[name]) == 0 {
		return SuperResource, nil
	}
	return 0, dspxml.NotFoundErrorf("resource %q has unknown super class %v", name, supers[name])
}

func (dm *DataModel) buildProperty(onto string, jp jsonProperty) (*Property, error) {
	prop := &Property{
		Name:       jp.Name,
		Ontology:   onto,
		Labels:     jp.Labels,
		GUIElement: jp.GUIElement,
	}
	if kind, ok := valueObjects[jp.Object]; ok {
		prop.Type = ValueType{Kind: kind}
	} else if jp.Object == "Resource" {
		prop.Type = ValueType{Kind: KindResourceLink}
	} else if _, ok := dm.res[localName(jp.Object)]; ok {
		prop.Type = ValueType{Kind: KindResourceLink, Target: localName(jp.Object)}
	} else {
		return nil, dspxml.NotFoundErrorf("property %q has unknown object %q", jp.Name, jp.Object)
	}
	if prop.Type.Kind == KindList {
		name := strings.TrimPrefix(jp.GUIAttributes.HList, "<")
		name = strings.TrimSuffix(name, ">")
		if _, ok := dm.Lists[name]; !ok {
			return nil, dspxml.NotFoundErrorf("property %q references unknown list %q", jp.Name, jp.GUIAttributes.HList)
		}
		prop.ListName = name
	}
	return prop, nil
}

func buildList(jl jsonList) (*List, error) {
	if len(jl.Labels) == 0 {
		return nil, dspxml.InputErrorf("list %q has no labels", jl.Name)
	}
	if len(jl.Nodes) == 0 {
		return nil, dspxml.InputErrorf("list %q has no nodes", jl.Name)
	}
	l := &List{Name: jl.Name, Labels: jl.Labels, Nodes: buildNodes(jl.Nodes)}
	l.index()
	return l, nil
}

func buildNodes(jns []jsonNode) []*ListNode {
	nodes := make([]*ListNode, 0, len(jns))
	for _, jn := range jns {
		nodes = append(nodes, &ListNode{
			Name:     jn.Name,
			Labels:   jn.Labels,
			Children: buildNodes(jn.Nodes),
		})
	}
	return nodes
}
