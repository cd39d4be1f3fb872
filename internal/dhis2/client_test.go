package dhis2

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/payload"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ServerConfig{
		BaseURL:  srv.URL,
		Username: "admin",
		Password: "district",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.ServerConfig{BaseURL: "https://example.org"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewClient(config.ServerConfig{Username: "a", Password: "b"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error without base URL")
	}
	if _, err := NewClient(config.ServerConfig{BaseURL: "https://example.org", APIToken: "t"}, zerolog.Nop()); err != nil {
		t.Fatalf("token-only client: %v", err)
	}
}

func TestValidateConnection(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/system/info" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "district" {
			t.Fatalf("basic auth = %q %q %v", user, pass, ok)
		}
		json.NewEncoder(w).Encode(map[string]string{"version": "2.40", "systemName": "Demo"})
	}))

	info, err := client.ValidateConnection(context.Background())
	if err != nil {
		t.Fatalf("ValidateConnection: %v", err)
	}
	if info.Version != "2.40" || info.SystemName != "Demo" {
		t.Fatalf("info = %+v", info)
	}
}

func TestValidateConnectionAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	if _, err := client.ValidateConnection(context.Background()); err == nil ||
		!strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestTokenAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "ApiToken secret" {
			t.Fatalf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"version": "2.40"})
	}))
	defer srv.Close()

	client, err := NewClient(config.ServerConfig{BaseURL: srv.URL, APIToken: "secret"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ValidateConnection(context.Background()); err != nil {
		t.Fatalf("ValidateConnection: %v", err)
	}
}

func TestFetchMetadataAssemblesGraph(t *testing.T) {
	responses := map[string]string{
		"/api/organisationUnits":    `{"organisationUnits":[{"id":"ou1","name":"Hopital Central"}]}`,
		"/api/dataSets":             `{"dataSets":[{"id":"ds1","name":"Consultations"}]}`,
		"/api/dataElements":         `{"dataElements":[{"id":"de1","name":"Cases"}]}`,
		"/api/categoryOptionCombos": `{"categoryOptionCombos":[{"id":"coc1","name":"default"}]}`,
		"/api/sections":             `{"sections":[{"id":"sec1","name":"Section A","sortOrder":1}]}`,
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("paging") != "false" {
			t.Fatalf("paging = %q for %s", r.URL.Query().Get("paging"), r.URL.Path)
		}
		body, ok := responses[r.URL.Path]
		if !ok {
			body = "{}"
		}
		w.Write([]byte(body))
	}))

	graph, err := client.FetchMetadata(context.Background())
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if len(graph.OrganisationUnits) != 1 || graph.OrganisationUnits[0].ID != "ou1" {
		t.Fatalf("org units = %+v", graph.OrganisationUnits)
	}
	if len(graph.DataSets) != 1 || len(graph.DataElements) != 1 || len(graph.Sections) != 1 {
		t.Fatalf("graph = %+v", graph)
	}
	if graph.Sections[0].SortOrder != 1 {
		t.Fatalf("section = %+v", graph.Sections[0])
	}
}

func TestPushDataValues(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/dataValueSets" {
			t.Fatalf("request = %s %s", r.Method, r.URL.Path)
		}
		var p payload.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || len(p.DataValues) != 1 {
			t.Fatalf("payload decode = %+v %v", p, err)
		}
		w.Write([]byte(`{"status":"SUCCESS","importCount":{"imported":1}}`))
	}))

	summary, err := client.PushDataValues(context.Background(), payload.Assemble([]payload.Record{{
		DataElement: "de1", Period: "2024", OrgUnit: "ou1",
		CategoryOptionCombo: "coc1", AttributeOptionCombo: "aoc1", Value: "7",
	}}))
	if err != nil {
		t.Fatalf("PushDataValues: %v", err)
	}
	if summary.Status != "SUCCESS" || summary.ImportCount.Imported != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestPushDataValuesErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ERROR","description":"conflict"}`))
	}))

	summary, err := client.PushDataValues(context.Background(), payload.Assemble([]payload.Record{{Value: "1"}}))
	if err == nil {
		t.Fatal("expected error for ERROR status")
	}
	if summary == nil || summary.Description != "conflict" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestPushDataValuesRejectsEmptyPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	if _, err := client.PushDataValues(context.Background(), payload.Assemble(nil)); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
