// Package scaffold drafts a parse-info file from a folder holding a data
// model and the workbooks to convert.
package scaffold

import (
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/parseinfo"
	"github.com/pilosa/dspxml/xlsx"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

// DefaultName is the file name used when no output is given.
const DefaultName = "parse-info.hcl"

// Main holds the options of the hcl command.
type Main struct {
	Folder    string `help:"Folder holding exactly one data model (.json) and the workbooks (.xlsx)."`
	Out       string `help:"File to write the draft parse-info to. Defaults to parse-info.hcl in the folder."`
	Separator string `help:"Separator of multiple values in one cell."`
	Verbose   bool   `help:"Enable verbose logging."`

	Log dspxml.Logger `flag:"-"`
}

// NewMain returns a Main with default options.
func NewMain() *Main {
	return &Main{Separator: "|"}
}

// Run writes the draft.
func (m *Main) Run() error {
	if m.Log == nil {
		if m.Verbose {
			m.Log = dspxml.VerboseLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
		} else {
			m.Log = dspxml.StdLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
		}
	}
	if m.Folder == "" {
		return dspxml.InputErrorf("no folder given, use --folder")
	}
	out := m.Out
	if out == "" {
		out = filepath.Join(m.Folder, DefaultName)
	}
	src, err := Draft(m.Folder, filepath.Dir(out), m.Separator, m.Log)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, src, 0644); err != nil {
		return dspxml.IOError(err, "writing "+out)
	}
	m.Log.Printf("wrote %s", out)
	return nil
}

// Draft builds a parse-info for the files in folder. Paths in the draft are
// relative to dir, where the draft is going to be written.
func Draft(folder, dir, separator string, lg dspxml.Logger) ([]byte, error) {
	fsys := os.DirFS(folder)
	jsons, err := parseinfo.FindFiles(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	if len(jsons) != 1 {
		return nil, dspxml.InputErrorf("%s must hold exactly one .json data model, found %d", folder, len(jsons))
	}
	books, err := parseinfo.FindFiles(fsys, "**/*.xlsx")
	if err != nil {
		return nil, err
	}
	books = withoutLockFiles(books)
	if len(books) == 0 {
		return nil, dspxml.InputErrorf("%s holds no .xlsx workbook", folder)
	}

	o, err := dspxml.NewOpener(filepath.FromSlash(jsons[0]), folder)
	if err != nil {
		return nil, err
	}
	dm, err := datamodel.Load(o)
	if err != nil {
		return nil, errors.Wrap(err, "loading data model")
	}

	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("shortcode", cty.StringVal(dm.Shortcode))
	body.SetAttributeValue("separator", cty.StringVal(separator))
	body.SetAttributeValue("set_permissions", cty.False)
	dmPath, err := relative(folder, jsons[0], dir)
	if err != nil {
		return nil, err
	}
	body.SetAttributeValue("datamodel_path", cty.StringVal(dmPath))

	for _, b := range books {
		rel, err := relative(folder, b, dir)
		if err != nil {
			return nil, err
		}
		body.AppendNewline()
		wb := body.AppendNewBlock("xlsx", []string{rel})
		if err := draftWorkbook(wb.Body(), filepath.Join(folder, filepath.FromSlash(b)), dm, lg); err != nil {
			return nil, errors.Wrapf(err, "workbook %s", b)
		}
	}
	return hclwrite.Format(f.Bytes()), nil
}

// withoutLockFiles drops the ~$name.xlsx files office suites leave behind.
func withoutLockFiles(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if !strings.HasPrefix(path.Base(p), "~$") {
			out = append(out, p)
		}
	}
	return out
}

// relative returns the slash path of folder/name as seen from dir.
func relative(folder, name, dir string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(folder, filepath.FromSlash(name)))
	if err != nil {
		return "", dspxml.IOError(err, "resolving "+name)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", dspxml.IOError(err, "resolving "+dir)
	}
	rel, err := filepath.Rel(absDir, abs)
	if err != nil {
		return "", dspxml.IOError(err, "resolving "+name)
	}
	return filepath.ToSlash(rel), nil
}

func draftWorkbook(body *hclwrite.Body, fname string, dm *datamodel.DataModel, lg dspxml.Logger) error {
	o, err := dspxml.NewOpener(fname, "")
	if err != nil {
		return err
	}
	w, err := xlsx.Open(o)
	if err != nil {
		return err
	}
	defer w.Close()
	for i := range w.SheetNames() {
		s, err := w.Sheet(i + 1)
		if err != nil {
			return err
		}
		if len(s.Headers) == 0 {
			lg.Debugf("skipping empty sheet %s of %s", s.Name, fname)
			continue
		}
		res := GuessResource(s, dm)
		if res == nil {
			return dspxml.InputErrorf("the data model has no resource class for sheet %s", s.Name)
		}
		lg.Debugf("sheet %s of %s looks like %s", s.Name, fname, res.Name)
		sb := body.AppendNewBlock("sheet", []string{strconv.Itoa(s.Index)})
		sb.Body().SetAttributeValue("resource", cty.StringVal(res.Name))
		draftAssignments(sb.Body().AppendNewBlock("assignments", nil).Body(), s.Headers, res)
	}
	return nil
}

// draftAssignments assigns every header which names a property of res, or
// the id and label, to itself. Headers which are not identifiers are
// assigned by position.
func draftAssignments(body *hclwrite.Body, headers []string, res *datamodel.Resource) {
	seen := make(map[string]bool)
	for i, h := range headers {
		if seen[h] {
			continue
		}
		if h != parseinfo.ID && h != parseinfo.Label && !res.HasProperty(h) {
			continue
		}
		seen[h] = true
		key := h
		if !hclsyntax.ValidIdentifier(h) || h == "rest" {
			key = "_" + strconv.Itoa(i)
		}
		body.SetAttributeValue(key, cty.StringVal(h))
	}
	body.SetAttributeTraversal("rest", hcl.Traversal{
		hcl.TraverseRoot{Name: "cmd"},
		hcl.TraverseAttr{Name: "find"},
	})
}

// GuessResource picks the resource class a sheet most likely holds: a class
// named like the sheet wins, otherwise the class with the most properties
// among the headers. Ties go to the first class by name.
func GuessResource(s *xlsx.Sheet, dm *datamodel.DataModel) *datamodel.Resource {
	names := dm.ResourceNames()
	sort.Strings(names)
	var best *datamodel.Resource
	bestScore := -1
	for _, name := range names {
		res, err := dm.Resource(name)
		if err != nil {
			continue
		}
		score := 0
		for _, h := range s.Headers {
			if res.HasProperty(h) {
				score++
			}
		}
		if sameName(s.Name, res.Name) {
			score += len(s.Headers) + 1
		}
		if score > bestScore {
			best, bestScore = res, score
		}
	}
	return best
}

func sameName(sheet, res string) bool {
	sheet = strings.ToLower(strings.TrimSpace(sheet))
	res = strings.ToLower(res)
	return sheet == res || sheet == res+"s"
}
