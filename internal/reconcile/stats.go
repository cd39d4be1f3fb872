// =============================================================================
// TCD Bridge - Processing Statistics
// =============================================================================
//
// Every reconciliation run produces a fresh Stats value. Row-level failures
// are never errors; they land in one of three buckets:
//   - unmapped establishments, with the value lost under each name
//   - unmapped data-element labels, with the value lost under each label
//   - unresolved reconciliation keys, as detail records
//
// The report keys stay in French because the operators reading them do.
//
// =============================================================================

package reconcile

// UnresolvedPreviewLimit caps the unresolved detail list in reports. The
// running counters are never capped.
const UnresolvedPreviewLimit = 10

// UnresolvedCombination details one row whose reconciliation key missed.
type UnresolvedCombination struct {
	Key           string `json:"cle"`
	Value         int    `json:"valeur"`
	Establishment string `json:"etablissement"`
	DataElement   string `json:"data_element"`
	Coc           string `json:"coc"`
}

// Stats accumulates the outcome of one reconciliation run.
type Stats struct {
	RowsProcessed int
	ValuesEmitted int

	// IncompleteCategoryRows counts rows dropped because a category cell
	// stayed empty after fill-down.
	IncompleteCategoryRows int

	UnmappedEstablishments map[string]int
	UnmappedDataElements   map[string]int
	Unresolved             []UnresolvedCombination
}

// NewStats creates an empty Stats with allocated buckets.
func NewStats() *Stats {
	return &Stats{
		UnmappedEstablishments: make(map[string]int),
		UnmappedDataElements:   make(map[string]int),
	}
}

// Report is the serializable view of a Stats.
type Report struct {
	RowsProcessed          int                     `json:"lignes_traitees"`
	ValuesEmitted          int                     `json:"valeurs_inserees"`
	IncompleteCategoryRows int                     `json:"lignes_categorie_incomplete"`
	UnmappedEstablishments map[string]int          `json:"etablissements_non_mappes"`
	UnmappedDataElements   map[string]int          `json:"data_elements_non_mappes"`
	Unresolved             []UnresolvedCombination `json:"combinaisons_non_trouvees"`
	UnresolvedTotal        int                     `json:"combinaisons_non_trouvees_total"`
}

// Report renders the stats with the unresolved list capped for reading.
func (s *Stats) Report() *Report {
	unresolved := s.Unresolved
	if len(unresolved) > UnresolvedPreviewLimit {
		unresolved = unresolved[:UnresolvedPreviewLimit]
	}
	if unresolved == nil {
		unresolved = []UnresolvedCombination{}
	}
	return &Report{
		RowsProcessed:          s.RowsProcessed,
		ValuesEmitted:          s.ValuesEmitted,
		IncompleteCategoryRows: s.IncompleteCategoryRows,
		UnmappedEstablishments: s.UnmappedEstablishments,
		UnmappedDataElements:   s.UnmappedDataElements,
		Unresolved:             unresolved,
		UnresolvedTotal:        len(s.Unresolved),
	}
}
