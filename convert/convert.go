// Package convert runs a whole conversion: it loads the parse-info and the
// data model, transforms every sheet, and writes one XML file per resource
// class.
package convert

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/dsp"
	"github.com/pilosa/dspxml/header"
	"github.com/pilosa/dspxml/iristore"
	"github.com/pilosa/dspxml/parseinfo"
	"github.com/pilosa/dspxml/transform"
	"github.com/pilosa/dspxml/validate"
	"github.com/pilosa/dspxml/xlsx"
	"github.com/pilosa/dspxml/xmlout"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	// registers the s3:// scheme for workbooks and data models.
	_ "github.com/pilosa/dspxml/aws/s3"
)

// Main holds the options of the xml command.
type Main struct {
	Transform      string        `help:"Parse-info file describing the conversion."`
	Out            string        `help:"Directory to write the XML files to. Defaults to the directory of the parse-info."`
	IRIStore       string        `flag:"iri-store" help:"Where IRIs of existing resources are kept: memory, bolt or leveldb."`
	IRIStorePath   string        `flag:"iri-store-path" help:"File (bolt) or directory (leveldb) of the IRI store."`
	ID2IRI         string        `flag:"id2iri" help:"JSON file mapping ids of existing resources to their IRIs."`
	ID2IRIResource string        `flag:"id2iri-resource" help:"Resource class of the ids in the id2iri file."`
	Server         string        `help:"DSP server to fetch the IRIs of existing resources from. Needs EMAIL and PASSWORD."`
	Timeout        time.Duration `help:"Timeout for requests to the DSP server."`
	Concurrency    int           `help:"Number of sheets read and transformed at once."`
	Verbose        bool          `help:"Enable verbose logging."`

	Log dspxml.Logger `flag:"-"`

	// Files are the paths written by the last Run.
	Files []string `flag:"-"`
}

// NewMain returns a Main with default options.
func NewMain() *Main {
	return &Main{
		IRIStore:    "memory",
		Timeout:     time.Minute,
		Concurrency: 4,
	}
}

// sheet is the state of one sheet during a run.
type sheet struct {
	info  *parseinfo.SheetInfo
	res   *datamodel.Resource
	table *transform.Table
	cross []transform.Operator
	rows  []validate.Resource
}

// Run performs the conversion.
func (m *Main) Run() (err error) {
	start := time.Now()
	if m.Log == nil {
		if m.Verbose {
			m.Log = dspxml.VerboseLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
		} else {
			m.Log = dspxml.StdLogger{Logger: log.New(os.Stderr, "", log.LstdFlags)}
		}
	}
	if m.Transform == "" {
		return dspxml.InputErrorf("no parse-info file given, use --transform")
	}
	pi, err := parseinfo.LoadFile(m.Transform)
	if err != nil {
		return errors.Wrap(err, "loading parse-info")
	}
	dm, err := m.loadDataModel(pi)
	if err != nil {
		return errors.Wrap(err, "loading data model")
	}
	if err := parseinfo.Validate(pi, dm); err != nil {
		return errors.Wrap(err, "validating parse-info")
	}

	store, err := iristore.Open(m.IRIStore, m.IRIStorePath)
	if err != nil {
		return errors.Wrap(err, "opening IRI store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing IRI store")
		}
	}()
	if err := m.importID2IRI(store); err != nil {
		return errors.Wrap(err, "importing id2iri mapping")
	}
	if m.Server != "" {
		if err := m.fetchIRIs(pi.Shortcode, store); err != nil {
			return errors.Wrapf(err, "fetching resources from %s", m.Server)
		}
	}

	sheets, err := m.transform(pi, dm, store)
	if err != nil {
		return err
	}
	for _, s := range sheets {
		if err := m.validate(pi, dm, s); err != nil {
			return errors.Wrapf(err, "sheet %s", s.info)
		}
	}

	out := m.Out
	if out == "" {
		out = pi.Dir
	}
	m.Files = m.Files[:0]
	for _, doc := range documents(pi, dm, sheets) {
		fname, err := xmlout.WriteFile(out, doc)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, fname)
		m.Log.Printf("wrote %d %s resources to %s", len(doc.Rows), doc.Resource.Name, fname)
	}
	m.Log.Debugf("converted %d sheets in %v", len(sheets), time.Since(start))
	return nil
}

func (m *Main) loadDataModel(pi *parseinfo.ParseInfo) (*datamodel.DataModel, error) {
	loc, err := pi.DataModelLocation()
	if err != nil {
		return nil, err
	}
	o, err := dspxml.NewOpener(loc, pi.Dir)
	if err != nil {
		return nil, err
	}
	m.Log.Debugf("reading data model from %v", o)
	return datamodel.Load(o)
}

func (m *Main) importID2IRI(store iristore.Store) error {
	if m.ID2IRI == "" {
		return nil
	}
	o, err := dspxml.NewOpener(m.ID2IRI, "")
	if err != nil {
		return err
	}
	rc, err := o.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %v", o)
	}
	defer rc.Close()
	n, err := iristore.ImportID2IRI(store, m.ID2IRIResource, rc)
	if err != nil {
		return errors.Wrapf(err, "reading %v", o)
	}
	m.Log.Printf("imported %d IRIs of %s from %v", n, m.ID2IRIResource, o)
	return nil
}

// logoutTimeout bounds the logout request sent after fetching IRIs.
const logoutTimeout = 10 * time.Second

// fetchIRIs logs in to the server, stores the IRI of every existing
// resource under its class and label, and logs out again.
func (m *Main) fetchIRIs(shortcode string, store iristore.Store) (err error) {
	email, password, err := dsp.Credentials()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	c := dsp.NewClient(m.Server, dsp.OptClientLogger(m.Log))
	if err := c.Login(ctx, email, password); err != nil {
		return err
	}
	// The session is released even when ctx has already expired.
	defer func() {
		lctx, lcancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer lcancel()
		if lerr := c.Logout(lctx); lerr != nil && err == nil {
			err = lerr
		}
	}()
	rs, err := c.Resources(ctx, shortcode)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := store.Put(r.ClassName(), r.Label, r.ResourceIRI); err != nil {
			return errors.Wrap(err, "storing IRI")
		}
	}
	m.Log.Printf("fetched %d existing resources from %s", len(rs), m.Server)
	return nil
}

// transform reads every sheet and runs its operators. Operators which only
// need their own sheet run concurrently per sheet; the rest run afterwards
// against snapshots of all first-pass tables.
func (m *Main) transform(pi *parseinfo.ParseInfo, dm *datamodel.DataModel, store iristore.Store) ([]*sheet, error) {
	infos := pi.SortedSheets()
	sheets := make([]*sheet, len(infos))
	env := &transform.Env{Model: dm, IRIs: store}

	var eg errgroup.Group
	if m.Concurrency > 0 {
		eg.SetLimit(m.Concurrency)
	}
	for i, info := range infos {
		i, info := i, info
		eg.Go(func() error {
			s, err := m.firstPass(pi, dm, info, env)
			if err != nil {
				return errors.Wrapf(err, "sheet %s", info)
			}
			sheets[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	foreign := make(map[string][]*transform.Table)
	for _, s := range sheets {
		foreign[s.res.Name] = append(foreign[s.res.Name], s.table.Snapshot())
	}
	cross := &transform.Env{Model: dm, IRIs: store, Foreign: foreign}
	for _, s := range sheets {
		if len(s.cross) == 0 {
			continue
		}
		m.Log.Debugf("sheet %s: %d cross-sheet operators", s.info, len(s.cross))
		if err := transform.Run(s.cross, s.table, cross); err != nil {
			return nil, errors.Wrapf(err, "sheet %s", s.info)
		}
	}
	return sheets, nil
}

func (m *Main) firstPass(pi *parseinfo.ParseInfo, dm *datamodel.DataModel, info *parseinfo.SheetInfo, env *transform.Env) (*sheet, error) {
	res, err := dm.Resource(info.ResourceName)
	if err != nil {
		return nil, err
	}
	o, err := dspxml.NewOpener(info.Workbook, pi.Dir)
	if err != nil {
		return nil, err
	}
	xs, err := xlsx.Load(o, info.Index)
	if err != nil {
		return nil, err
	}
	m.Log.Debugf("sheet %s: %d columns, %d rows", info, len(xs.Headers), len(xs.Rows))
	t := transform.NewTable(xs.Headers, xs.Rows, pi.Separator)
	for _, a := range info.Assignments.Columns {
		t.Assign(a.Property, a.Header)
	}
	local, cross, err := info.Transformations.Split(env)
	if err != nil {
		return nil, err
	}
	if err := transform.Run(local, t, env); err != nil {
		return nil, err
	}
	return &sheet{info: info, res: res, table: t, cross: cross}, nil
}

func (m *Main) validate(pi *parseinfo.ParseInfo, dm *datamodel.DataModel, s *sheet) error {
	layout, err := header.Classify(s.table, s.info, s.res)
	if err != nil {
		return errors.Wrap(err, "classifying columns")
	}
	for _, c := range layout.Columns {
		if c.Role == header.Ignored {
			m.Log.Debugf("sheet %s: column %s is ignored", s.info, c)
		}
	}
	s.rows, err = validate.Rows(s.table, layout, dm, s.res, validate.Options{SetPermissions: pi.SetPermissions})
	return err
}

// documents groups the rows of all sheets by resource class, in the order
// the classes first appear.
func documents(pi *parseinfo.ParseInfo, dm *datamodel.DataModel, sheets []*sheet) []*xmlout.Document {
	var docs []*xmlout.Document
	byName := make(map[string]*xmlout.Document)
	for _, s := range sheets {
		doc, ok := byName[s.res.Name]
		if !ok {
			doc = &xmlout.Document{
				Shortcode:       dm.Shortcode,
				DefaultOntology: dm.Shortname,
				Resource:        s.res,
				SetPermissions:  pi.SetPermissions,
				ResourcesFolder: pi.ResourcesFolderPath,
			}
			byName[s.res.Name] = doc
			docs = append(docs, doc)
		}
		doc.Rows = append(doc.Rows, s.rows...)
	}
	return docs
}
