package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "key", BaseID: "app1", Table: "Audits", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestValidateNamesMissingSetting(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{BaseID: "b", Table: "t"}, "AIRTABLE_API_KEY"},
		{Config{APIKey: "k", Table: "t"}, "AIRTABLE_BASE_ID"},
		{Config{APIKey: "k", BaseID: "b"}, "AIRTABLE_TABLE_NAME"},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("expected error naming %s, got %v", tc.want, err)
		}
	}
	if err := (Config{APIKey: "k", BaseID: "b", Table: "t"}).Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestListAllFollowsOffset(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.URL.Path != "/app1/Audits" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		var resp listResponse
		switch offset {
		case "":
			resp = listResponse{Records: []RawRecord{{ID: "rec1"}, {ID: "rec2"}}, Offset: "itr/abc=="}
		case "itr/abc==":
			resp = listResponse{Records: []RawRecord{{ID: "rec3"}}}
		default:
			t.Errorf("unexpected offset %q", offset)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv).ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"rec1", "rec2", "rec3"} {
		if records[i].ID != want {
			t.Errorf("record %d: expected %s, got %s", i, want, records[i].ID)
		}
	}
	if len(offsets) != 2 || offsets[1] != "itr/abc==" {
		t.Errorf("expected offset echoed verbatim, got %v", offsets)
	}
}

func TestListAllAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"AUTHENTICATION_REQUIRED"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListAll(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.Status)
	}
}

func TestListWithFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filterByFormula"); got != "{Client}='Acme'" {
			t.Errorf("unexpected filter %q", got)
		}
		json.NewEncoder(w).Encode(listResponse{Records: []RawRecord{{ID: "rec1"}}})
	}))
	defer srv.Close()

	records, err := newTestClient(t, srv).List(context.Background(), "{Client}='Acme'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestGetByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app1/Audits/rec1":
			json.NewEncoder(w).Encode(RawRecord{ID: "rec1", Fields: map[string]any{"Client": "Acme Co"}})
		default:
			http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	rec, err := c.GetByID(context.Background(), "rec1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Fields["Client"] != "Acme Co" {
		t.Errorf("unexpected fields %v", rec.Fields)
	}

	_, err = c.GetByID(context.Background(), "recMissing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractFields(t *testing.T) {
	records := ExtractFields([]RawRecord{
		{ID: "rec1", Fields: map[string]any{"Client": " Acme Co ", "Clarity & Purpose Score": float64(4)}},
		{ID: "rec2", Fields: nil},
	})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "rec1" || records[0].Client != "Acme Co" {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].HasData() {
		t.Error("expected second record to carry no data")
	}
}
