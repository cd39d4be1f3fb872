package payload

import (
	"encoding/json"
	"strings"
	"testing"
)

func record() Record {
	return Record{
		DataElement:          "de1",
		Period:               "2024",
		OrgUnit:              "ou1",
		CategoryOptionCombo:  "coc1",
		AttributeOptionCombo: "aoc1",
		Value:                "7",
	}
}

func TestAssembleAlwaysCarriesArray(t *testing.T) {
	data, err := json.Marshal(Assemble(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"dataValues":[]}` {
		t.Fatalf("empty payload = %s", data)
	}
}

func TestValidateOK(t *testing.T) {
	p := Assemble([]Record{record(), record()})
	if problems := Validate(p); len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
}

func TestValidateEmptyPayload(t *testing.T) {
	problems := Validate(Assemble(nil))
	if len(problems) != 1 || problems[0] != "payload contains no data values" {
		t.Fatalf("problems = %v", problems)
	}
}

func TestValidateReportsMissingFieldsPerIndex(t *testing.T) {
	broken := record()
	broken.OrgUnit = ""
	broken.Value = ""
	p := Assemble([]Record{record(), broken})

	problems := Validate(p)
	if len(problems) != 2 {
		t.Fatalf("problems = %v", problems)
	}
	if !strings.HasPrefix(problems[0], "record 1: missing orgUnit") {
		t.Fatalf("problems = %v", problems)
	}
}

func TestValidateOnlySamplesTheHead(t *testing.T) {
	records := make([]Record, 0, 12)
	for i := 0; i < 12; i++ {
		records = append(records, record())
	}
	// A defect past the sample window is not reported.
	records[11].Period = ""

	if problems := Validate(Assemble(records)); len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
}
