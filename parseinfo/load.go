package parseinfo

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/transform"
	"github.com/pkg/errors"
)

// LoadFile reads and loads the parse-info document at path. Relative paths
// inside it are resolved against the document's directory.
func LoadFile(path string) (*ParseInfo, error) {
	o, err := dspxml.NewOpener(path, "")
	if err != nil {
		return nil, err
	}
	src, err := dspxml.ReadAll(o)
	if err != nil {
		return nil, err
	}
	pi, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	pi.Dir = filepath.Dir(path)
	return pi, nil
}

// Parse loads a parse-info document from source; filename is used in error
// positions.
func Parse(src []byte, filename string) (*ParseInfo, error) {
	f, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, dspxml.InputErrorf("%s", diags.Error())
	}
	body, ok := f.Body.(*hclsyntax.Body)
	if !ok {
		return nil, dspxml.InputErrorf("%s is not native syntax", filename)
	}
	return Load(body, filepath.Dir(filename))
}

var shortcodeRE = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)

// Load builds a ParseInfo from a parsed body. The sheets' transformations
// are compiled into plans, so a loaded ParseInfo has no duplicate outputs
// and no cycles.
func Load(body *hclsyntax.Body, dir string) (*ParseInfo, error) {
	pi := &ParseInfo{Workbooks: make(map[string]*Workbook), Dir: dir}
	r := newReader(body, "parse info")

	if a := r.attr("shortcode"); a != nil {
		v, err := value(a)
		if err != nil {
			return nil, err
		}
		if i, err := intValue(a, v); err == nil {
			pi.Shortcode = fmt.Sprintf("%04d", i)
		} else if pi.Shortcode, err = stringValue(a); err != nil {
			return nil, err
		}
		if !shortcodeRE.MatchString(pi.Shortcode) {
			return nil, dspxml.InputErrorf("%s: shortcode %q must be 4 hexadecimal digits", a.SrcRange, pi.Shortcode)
		}
		pi.Shortcode = strings.ToUpper(pi.Shortcode)
	} else {
		return nil, r.missing("shortcode")
	}

	var err error
	if pi.Separator, _, err = r.str("separator", true); err != nil {
		return nil, err
	}
	if pi.Separator == "" {
		return nil, dspxml.InputErrorf("%s: separator must not be empty", body.Attributes["separator"].SrcRange)
	}
	if pi.SetPermissions, _, err = r.boolean("set_permissions", true); err != nil {
		return nil, err
	}
	if a := r.attr("datamodel_path"); a != nil {
		if isFind(a.Expr) {
			pi.FindDataModel = true
		} else if pi.DataModelPath, err = stringValue(a); err != nil {
			return nil, err
		}
	} else {
		pi.FindDataModel = true
	}
	if pi.ResourcesFolderPath, _, err = r.str("resources_folder_path", false); err != nil {
		return nil, err
	}
	if err := r.done("xlsx"); err != nil {
		return nil, err
	}

	for _, b := range body.Blocks {
		if len(b.Labels) != 1 || b.Labels[0] == "" {
			return nil, dspxml.InputErrorf("%s: xlsx block needs exactly one label, the workbook path", b.TypeRange)
		}
		rel := b.Labels[0]
		if _, ok := pi.Workbooks[rel]; ok {
			return nil, dspxml.InputErrorf("%s: workbook %q is listed twice", b.LabelRanges[0], rel)
		}
		wb, err := loadWorkbook(rel, b.Body)
		if err != nil {
			return nil, err
		}
		pi.Workbooks[rel] = wb
	}
	if len(pi.Workbooks) == 0 {
		return nil, dspxml.InputErrorf("%s: parse info lists no xlsx workbook", body.SrcRange)
	}
	return pi, nil
}

func loadWorkbook(rel string, body *hclsyntax.Body) (*Workbook, error) {
	wb := &Workbook{RelPath: rel, Sheets: make(map[int]*SheetInfo)}
	if err := newReader(body, "xlsx "+rel).done("sheet"); err != nil {
		return nil, err
	}
	for _, b := range body.Blocks {
		if len(b.Labels) != 1 {
			return nil, dspxml.InputErrorf("%s: sheet block needs exactly one label, the sheet number", b.TypeRange)
		}
		idx, err := strconv.Atoi(b.Labels[0])
		if err != nil || idx < 1 {
			return nil, dspxml.InputErrorf("%s: sheet number %q must be an integer >= 1", b.LabelRanges[0], b.Labels[0])
		}
		if _, ok := wb.Sheets[idx]; ok {
			return nil, dspxml.InputErrorf("%s: sheet %d of %s is listed twice", b.LabelRanges[0], idx, rel)
		}
		s, err := loadSheet(rel, idx, b.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "sheet %s", sheetName(rel, idx))
		}
		wb.Sheets[idx] = s
	}
	if len(wb.Sheets) == 0 {
		return nil, dspxml.InputErrorf("%s: xlsx %q has no sheet block", body.SrcRange, rel)
	}
	return wb, nil
}

func sheetName(rel string, idx int) string {
	return fmt.Sprintf("%s[%d]", rel, idx)
}

func loadSheet(rel string, idx int, body *hclsyntax.Body) (*SheetInfo, error) {
	s := &SheetInfo{Workbook: rel, Index: idx}
	r := newReader(body, "sheet")
	var err error
	if s.ResourceName, _, err = r.str("resource", true); err != nil {
		return nil, err
	}
	if err := r.done("assignments", "supplements", "transform"); err != nil {
		return nil, err
	}

	seen := make(map[string]*hclsyntax.Block)
	for _, b := range body.Blocks {
		if prev, ok := seen[b.Type]; ok {
			return nil, dspxml.InputErrorf("%s: second %s block, the first is at %s", b.TypeRange, b.Type, prev.TypeRange)
		}
		seen[b.Type] = b
		if len(b.Labels) != 0 {
			return nil, dspxml.InputErrorf("%s: %s block takes no labels", b.TypeRange, b.Type)
		}
	}
	ab, ok := seen["assignments"]
	if !ok {
		return nil, dspxml.InputErrorf("%s: sheet needs an assignments block", body.SrcRange)
	}
	if s.Assignments, err = loadAssignments(ab.Body); err != nil {
		return nil, err
	}
	if sb, ok := seen["supplements"]; ok {
		if s.Supplements, err = loadSupplements(sb.Body); err != nil {
			return nil, err
		}
	}
	if tb, ok := seen["transform"]; ok {
		ops, err := loadTransform(tb.Body)
		if err != nil {
			return nil, err
		}
		if s.Transformations, err = transform.NewPlan(ops); err != nil {
			return nil, err
		}
	}
	if err := checkOutputs(s); err != nil {
		return nil, err
	}
	return s, nil
}

var positional = regexp.MustCompile(`^_(\d+)$`)

func loadAssignments(body *hclsyntax.Body) (Assignments, error) {
	var as Assignments
	if len(body.Blocks) > 0 {
		return as, dspxml.InputErrorf("%s: assignments take no blocks", body.Blocks[0].TypeRange)
	}
	targets := make(map[string]string)
	for _, a := range sortedAttributes(body) {
		if a.Name == "rest" {
			if !isFind(a.Expr) {
				return as, dspxml.InputErrorf("%s: rest can only be cmd.find", a.SrcRange)
			}
			as.FindRest = true
			continue
		}
		prop, err := stringValue(a)
		if err != nil {
			return as, err
		}
		if prop == "" {
			return as, dspxml.InputErrorf("%s: column %q is assigned to nothing", a.SrcRange, a.Name)
		}
		if prev, ok := targets[prop]; ok {
			return as, dspxml.InputErrorf("%s: %q is assigned from both %q and %q", a.SrcRange, prop, prev, a.Name)
		}
		targets[prop] = a.Name
		ref := transform.Name(a.Name)
		if m := positional.FindStringSubmatch(a.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			ref = transform.Index(n)
		}
		as.Columns = append(as.Columns, Assignment{Header: ref, Property: prop})
	}
	return as, nil
}

func loadSupplements(body *hclsyntax.Body) (Supplements, error) {
	sup := Supplements{
		Resource:   make(map[string]transform.HeaderRef),
		Properties: make(map[string]map[string]transform.HeaderRef),
	}
	if attrs := sortedAttributes(body); len(attrs) > 0 {
		return sup, dspxml.InputErrorf("%s: supplements take blocks, found attribute %q", attrs[0].NameRange, attrs[0].Name)
	}
	for _, b := range body.Blocks {
		if len(b.Labels) != 0 {
			return sup, dspxml.InputErrorf("%s: %s block takes no labels", b.TypeRange, b.Type)
		}
		allowed := propertyTargets
		dest := make(map[string]transform.HeaderRef)
		if b.Type == "resource" {
			allowed = resourceTargets
			if len(sup.Resource) > 0 {
				return sup, dspxml.InputErrorf("%s: second resource block in supplements", b.TypeRange)
			}
			sup.Resource = dest
		} else {
			if _, ok := sup.Properties[b.Type]; ok {
				return sup, dspxml.InputErrorf("%s: second %s block in supplements", b.TypeRange, b.Type)
			}
			sup.Properties[b.Type] = dest
		}
		r := newReader(b.Body, "supplements "+b.Type)
		for _, a := range sortedAttributes(b.Body) {
			target := a.Name
			if target == "bitstream_permissions" {
				target = BitstreamPermissions
			}
			if !allowed[target] {
				return sup, dspxml.InputErrorf("%s: %q is not a supplement of %s", a.NameRange, a.Name, b.Type)
			}
			ref, err := r.ref(a.Name)
			if err != nil {
				return sup, err
			}
			dest[target] = ref
		}
		if err := r.done(); err != nil {
			return sup, err
		}
	}
	return sup, nil
}

// checkOutputs rejects operator outputs which are also assignment targets.
func checkOutputs(s *SheetInfo) error {
	for _, a := range s.Assignments.Columns {
		if s.Transformations.Produces(a.Property) {
			return dspxml.ParsingErrorf("%q is both assigned from column %v and produced by %s",
				a.Property, a.Header, producerName(s.Transformations, a.Property))
		}
	}
	return nil
}

func producerName(p *transform.Plan, name string) string {
	op, _ := p.Producer(name)
	return transform.Describe(op)
}
