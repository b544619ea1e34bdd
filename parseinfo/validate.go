package parseinfo

import (
	"strings"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/datamodel"
	"github.com/pilosa/dspxml/transform"
	"github.com/pkg/errors"
)

// Validate checks the references of pi into dm: the shortcode, every sheet's
// resource, assignment targets, supplemented properties, the list
// properties of replace_label_name and the resources of cross-sheet
// operators.
func Validate(pi *ParseInfo, dm *datamodel.DataModel) error {
	if !strings.EqualFold(pi.Shortcode, dm.Shortcode) {
		return dspxml.InputErrorf("parse info shortcode %s does not match the data model's %s", pi.Shortcode, dm.Shortcode)
	}
	for _, s := range pi.SortedSheets() {
		if err := validateSheet(s, dm); err != nil {
			return errors.Wrapf(err, "sheet %s", s)
		}
	}
	return nil
}

func validateSheet(s *SheetInfo, dm *datamodel.DataModel) error {
	res, err := dm.Resource(s.ResourceName)
	if err != nil {
		return err
	}
	for _, a := range s.Assignments.Columns {
		// Load rejects targets that are also operator outputs.
		if IsReserved(a.Property) || res.HasProperty(a.Property) {
			continue
		}
		return dspxml.NotFoundErrorf("column %v is assigned to %q, which is not a property of %s", a.Header, a.Property, res.Name)
	}
	for prop := range s.Supplements.Properties {
		if !res.HasProperty(prop) {
			return dspxml.NotFoundErrorf("supplements name %q, which is not a property of %s", prop, res.Name)
		}
	}
	for _, op := range s.Transformations.Ops() {
		switch o := op.(type) {
		case transform.ReplaceLabelName:
			if !res.HasProperty(o.Output) {
				return dspxml.NotFoundErrorf("%s: %q is not a property of %s", transform.Describe(op), o.Output, res.Name)
			}
			if _, err := dm.PropertyList(o.Output); err != nil {
				return errors.Wrap(err, transform.Describe(op))
			}
		case transform.Identify:
			if _, err := dm.Resource(o.Resource); err != nil {
				return errors.Wrap(err, transform.Describe(op))
			}
		case transform.ReplaceWithIRI:
			if _, err := dm.Resource(o.Resource); err != nil {
				return errors.Wrap(err, transform.Describe(op))
			}
		}
	}
	return nil
}
