package template

import (
	"testing"

	"github.com/rs/zerolog"
)

func sampleRows() []Row {
	return []Row{
		{
			Section:         "Section A",
			DataElementName: "Cases",
			DataElementID:   "de1",
			OrgUnitName:     "Hopital Central",
			OrgUnitID:       "ou1",
			CocName:         "F | [20-22[",
			CocID:           "coc1",
			Period:          "2024",
		},
		{
			Section:         "Section A",
			DataElementName: "Cases",
			DataElementID:   "de1",
			OrgUnitName:     "Hopital Central",
			OrgUnitID:       "ou1",
			CocName:         "M | [20-22[",
			CocID:           "coc2",
			Period:          "2024",
		},
	}
}

func TestIndexLookupNormalizesCompositeCategory(t *testing.T) {
	ix, err := NewIndex(sampleRows(), CollisionLast, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	// The template spells the combo "F | [20-22[" but the key carries the
	// normalized, order-independent form.
	row, ok := ix.Lookup(Key("Section A", "Cases", "Hopital Central", "20-22|F"))
	if !ok {
		t.Fatal("expected a hit for the normalized key")
	}
	if row.CocID != "coc1" {
		t.Fatalf("CocID = %q", row.CocID)
	}
	if _, ok := ix.Lookup(Key("Section A", "Cases", "Hopital Central", "20-22|X")); ok {
		t.Fatal("unexpected hit for unknown combo")
	}
	if ix.Len() != 2 {
		t.Fatalf("Len = %d", ix.Len())
	}
}

func TestIndexOrgNames(t *testing.T) {
	ix, err := NewIndex(sampleRows(), CollisionLast, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	names := ix.OrgNames()
	if got := names["hopital central"]; got != "Hopital Central" {
		t.Fatalf("OrgNames = %v", names)
	}
}

func TestIndexCollisionPolicies(t *testing.T) {
	rows := sampleRows()
	dup := rows[0]
	dup.CocID = "cocDup"
	rows = append(rows, dup)

	last, err := NewIndex(rows, CollisionLast, zerolog.Nop())
	if err != nil {
		t.Fatalf("CollisionLast: %v", err)
	}
	if row, _ := last.Lookup(Key("Section A", "Cases", "Hopital Central", "20-22|F")); row.CocID != "cocDup" {
		t.Fatalf("last policy kept %q", row.CocID)
	}
	if len(last.Collisions()) != 1 {
		t.Fatalf("collisions = %v", last.Collisions())
	}

	first, err := NewIndex(rows, CollisionFirst, zerolog.Nop())
	if err != nil {
		t.Fatalf("CollisionFirst: %v", err)
	}
	if row, _ := first.Lookup(Key("Section A", "Cases", "Hopital Central", "20-22|F")); row.CocID != "coc1" {
		t.Fatalf("first policy kept %q", row.CocID)
	}

	if _, err := NewIndex(rows, CollisionReject, zerolog.Nop()); err == nil {
		t.Fatal("reject policy should fail on a duplicate key")
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	for input, want := range map[string]CollisionPolicy{
		"":         CollisionLast,
		"last":     CollisionLast,
		"First":    CollisionFirst,
		" reject ": CollisionReject,
	} {
		got, err := ParseCollisionPolicy(input)
		if err != nil || got != want {
			t.Fatalf("ParseCollisionPolicy(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseCollisionPolicy("bogus"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
