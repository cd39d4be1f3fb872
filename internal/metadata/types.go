// =============================================================================
// TCD Bridge - Metadata Graph Types
// =============================================================================
//
// Typed records for the DHIS2 metadata document. The platform API serves a
// nested JSON graph whose collections cross-reference each other by id; the
// decoder below maps each collection onto an explicit struct so the index can
// be built without duck-typed nested maps.
//
// Collections not listed here (e.g. indicators) are ignored by the decoder.
//
// =============================================================================

package metadata

import "encoding/json"

// Ref is an id-only reference to another entity in the graph.
type Ref struct {
	ID string `json:"id"`
}

// OrganisationUnit is one node of the organisation hierarchy.
// The hierarchy is a forest: Parent is nil for roots, and a parent id that
// does not resolve within the graph marks the unit as an extra root.
type OrganisationUnit struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Code     string          `json:"code,omitempty"`
	Parent   *Ref            `json:"parent,omitempty"`
	Level    int             `json:"level,omitempty"`
	Path     string          `json:"path,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// OrgUnitLevel names one depth of the hierarchy.
type OrgUnitLevel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// OrgUnitGroup is a flat grouping of organisation units.
type OrgUnitGroup struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	OrganisationUnits []Ref  `json:"organisationUnits,omitempty"`
}

// DataElement is a single collected variable. A nil CategoryCombo means the
// element has no real disaggregation and resolves to the default combo.
type DataElement struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code,omitempty"`
	ValueType     string `json:"valueType,omitempty"`
	CategoryCombo *Ref   `json:"categoryCombo,omitempty"`
}

// DataElementGroup is a flat grouping of data elements.
type DataElementGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DataElements []Ref  `json:"dataElements,omitempty"`
}

// CategoryOption is one concrete value of a category ("F", "20-22", ...).
type CategoryOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Category aggregates the options of one dimension ("Sex", "Age group").
type Category struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CategoryOptions []Ref  `json:"categoryOptions,omitempty"`
}

// CategoryCombo is an ordered set of categories.
type CategoryCombo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Categories []Ref  `json:"categories,omitempty"`
}

// CategoryOptionCombo is one concrete tuple of options, one per category of
// its combo. The combo named "default" is the fallback disaggregation cell.
type CategoryOptionCombo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CategoryCombo   *Ref   `json:"categoryCombo,omitempty"`
	CategoryOptions []Ref  `json:"categoryOptions,omitempty"`
}

// DataSetElement binds a data element into a dataset.
type DataSetElement struct {
	DataElement Ref `json:"dataElement"`
}

// Dataset owns an ordered list of data elements and, optionally, sections.
type Dataset struct {
	ID                     string           `json:"id"`
	Name                   string           `json:"name"`
	Code                   string           `json:"code,omitempty"`
	ShortName              string           `json:"shortName,omitempty"`
	PeriodType             string           `json:"periodType,omitempty"`
	DataSetElements        []DataSetElement `json:"dataSetElements,omitempty"`
	CategoryCombo          *Ref             `json:"categoryCombo,omitempty"`
	AttributeCategoryCombo *Ref             `json:"attributeCategoryCombo,omitempty"`
}

// Section groups a subset of a dataset's data elements for entry layout.
type Section struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SortOrder    int    `json:"sortOrder,omitempty"`
	DataSet      *Ref   `json:"dataSet,omitempty"`
	DataElements []Ref  `json:"dataElements,omitempty"`
}

// Graph is the decoded metadata document as served by /api/metadata.
type Graph struct {
	OrganisationUnits      []OrganisationUnit    `json:"organisationUnits"`
	OrganisationUnitLevels []OrgUnitLevel        `json:"organisationUnitLevels,omitempty"`
	OrganisationUnitGroups []OrgUnitGroup        `json:"organisationUnitGroups,omitempty"`
	DataSets               []Dataset             `json:"dataSets"`
	Sections               []Section             `json:"sections,omitempty"`
	DataElements           []DataElement         `json:"dataElements"`
	DataElementGroups      []DataElementGroup    `json:"dataElementGroups,omitempty"`
	Categories             []Category            `json:"categories,omitempty"`
	CategoryOptions        []CategoryOption      `json:"categoryOptions,omitempty"`
	CategoryCombos         []CategoryCombo       `json:"categoryCombos,omitempty"`
	CategoryOptionCombos   []CategoryOptionCombo `json:"categoryOptionCombos,omitempty"`
}
