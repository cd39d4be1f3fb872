// =============================================================================
// TCD Bridge - Template Search Index
// =============================================================================
//
// The search index turns a slice of template rows into an O(1) reverse map
// keyed by the reconciliation key:
//
//   section|dataElementName|orgUnitName|normalizedCompositeCategory
//
// The composite category part goes through the same normalization the
// reconciler applies to pivot rows, so both sides of the lookup speak the
// same key language. The index also exposes the set of distinct organisation
// names, which the reconciler needs to build its acronym mapping.
//
// =============================================================================

package template

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/normalize"
)

// CollisionPolicy decides what happens when two template rows produce the
// same reconciliation key.
type CollisionPolicy int

const (
	// CollisionLast keeps the later row. This is the default.
	CollisionLast CollisionPolicy = iota

	// CollisionFirst keeps the earlier row.
	CollisionFirst

	// CollisionReject fails the index build on the first duplicate.
	CollisionReject
)

// ParseCollisionPolicy reads a policy from its configuration spelling.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return CollisionLast, nil
	case "first":
		return CollisionFirst, nil
	case "reject":
		return CollisionReject, nil
	default:
		return CollisionLast, fmt.Errorf("unknown collision policy %q (want last, first or reject)", s)
	}
}

// Index is the reconciliation-key reverse map over one set of template rows.
type Index struct {
	rows  []Row
	byKey map[string]int

	// orgNames maps the lower-cased organisation name to its exact
	// template spelling.
	orgNames map[string]string

	collisions []string
}

// Key builds the reconciliation key. cocNorm must already be the normalized
// composite category (normalize.CompositeCategory output).
func Key(section, dataElementName, orgName, cocNorm string) string {
	return strings.TrimSpace(section) + "|" +
		strings.TrimSpace(dataElementName) + "|" +
		strings.TrimSpace(orgName) + "|" +
		cocNorm
}

// NewIndex builds the search index in one pass over the rows.
//
// PARAMETERS:
//   - rows: the template rows, in workbook order.
//   - policy: what to do when two rows share a key.
//   - log: sink for per-collision debug output.
//
// RETURNS:
//   - The index, or an error under CollisionReject when a duplicate exists.
func NewIndex(rows []Row, policy CollisionPolicy, log zerolog.Logger) (*Index, error) {
	ix := &Index{
		rows:     rows,
		byKey:    make(map[string]int, len(rows)),
		orgNames: make(map[string]string),
	}

	for i := range rows {
		row := &rows[i]

		name := strings.TrimSpace(row.OrgUnitName)
		if name != "" {
			ix.orgNames[strings.ToLower(name)] = name
		}

		cocNorm, ok := normalize.CompositeCategory(row.CocName)
		if !ok {
			cocNorm = ""
		}
		key := Key(row.Section, row.DataElementName, name, cocNorm)

		if prev, dup := ix.byKey[key]; dup {
			ix.collisions = append(ix.collisions, key)
			log.Debug().Str("key", key).Int("kept", prev).Int("dropped_or_replacing", i).Msg("duplicate template key")
			switch policy {
			case CollisionFirst:
				continue
			case CollisionReject:
				return nil, fmt.Errorf("duplicate template key %q (rows %d and %d)", key, prev, i)
			}
		}
		ix.byKey[key] = i
	}

	log.Info().Int("rows", len(rows)).Int("keys", len(ix.byKey)).Int("collisions", len(ix.collisions)).Msg("template index built")
	return ix, nil
}

// Lookup resolves a reconciliation key to its template row.
func (ix *Index) Lookup(key string) (*Row, bool) {
	i, ok := ix.byKey[key]
	if !ok {
		return nil, false
	}
	return &ix.rows[i], true
}

// OrgNames returns the distinct organisation names of the template, keyed by
// their lower-cased form.
func (ix *Index) OrgNames() map[string]string { return ix.orgNames }

// Collisions returns the keys that appeared more than once.
func (ix *Index) Collisions() []string { return ix.collisions }

// Len returns the number of distinct keys.
func (ix *Index) Len() int { return len(ix.byKey) }
