package models

import (
	"encoding/json"
	"net/url"
	"reflect"
	"testing"
)

func TestParseListQuery(t *testing.T) {
	v := url.Values{}
	v.Set("page", "3")
	v.Set("limit", "abc")
	v.Set("sort", "name:asc")
	v.Set("name_like", "banco")
	v.Set("website_url_like", "")
	v.Set("_like", "x")

	q := ParseListQuery(v)
	if q.Page != 3 || q.Limit != DefaultLimit || q.Sort != "name:asc" {
		t.Fatalf("query = %+v", q)
	}
	if !reflect.DeepEqual(q.Search, map[string]string{"name": "banco"}) {
		t.Fatalf("search = %v", q.Search)
	}
	if q.Offset() != 100 {
		t.Fatalf("offset = %d", q.Offset())
	}

	again := ParseListQuery(q.Values())
	if !reflect.DeepEqual(again, q) {
		t.Fatalf("Values round trip = %+v, want %+v", again, q)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct{ total, limit, want int }{
		{137, 50, 3},
		{150, 50, 3},
		{0, 50, 1},
		{1, 50, 1},
	}
	for _, tt := range tests {
		r := ListResult{Total: tt.total, Limit: tt.limit}
		if got := r.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(%d/%d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}

func TestSubmissionDecode(t *testing.T) {
	var s Submission
	if err := json.Unmarshal([]byte(`{"formId":"event_booking","telefone":"555","event_id":4,"name":"A"}`), &s); err != nil {
		t.Fatal(err)
	}
	if s.FormID != FormEventBooking || s.Contact() != "555" {
		t.Fatalf("submission = %+v", s)
	}
	if _, ok := s.Data["formId"]; ok {
		t.Fatal("formId must not stay in Data")
	}
	if id, ok := s.EventID(); !ok || id != 4 {
		t.Fatalf("EventID = %d, %v", id, ok)
	}
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &s); err == nil {
		t.Fatal("expected error without formId")
	}
}
