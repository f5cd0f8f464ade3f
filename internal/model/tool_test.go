package model

import (
	"encoding/json"
	"testing"
)

func TestFilterTools(t *testing.T) {
	tools := []Tool{
		{ID: 1, Name: "Cordless Drill", Category: CategoryPowerTools},
		{ID: 2, Name: "Rake", Category: CategoryGardenTools},
		{ID: 3, Name: "Tape", Category: CategoryMeasuring},
	}

	tests := []struct {
		term string
		ids  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"drill", []int64{1}},
		{"GARDEN", []int64{2}},
		{"tool", []int64{1, 2}},
		{"  ta ", []int64{3}},
		{"hammer", nil},
	}

	for _, tt := range tests {
		got := FilterTools(tools, tt.term)
		if len(got) != len(tt.ids) {
			t.Errorf("FilterTools(%q) returned %d tools, want %d", tt.term, len(got), len(tt.ids))
			continue
		}
		for i, tool := range got {
			if tool.ID != tt.ids[i] {
				t.Errorf("FilterTools(%q)[%d] = %d, want %d", tt.term, i, tool.ID, tt.ids[i])
			}
		}
	}
}

func TestCountAvailable(t *testing.T) {
	tools := []Tool{{IsAvailable: true}, {IsAvailable: false}, {IsAvailable: true}}
	if got := CountAvailable(tools); got != 2 {
		t.Errorf("expected 2 available, got %d", got)
	}
}

func TestPageDecodesEnvelope(t *testing.T) {
	payload := `{"count": 12, "next": "http://api/tools/?page=2", "previous": null,
	             "results": [{"id": 1, "name": "Drill"}]}`

	var p Page[Tool]
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Count != 12 || len(p.Results) != 1 {
		t.Errorf("unexpected page: %+v", p)
	}
	if !p.HasNext() || p.HasPrevious() {
		t.Errorf("expected next only, got next=%v previous=%v", p.HasNext(), p.HasPrevious())
	}
}

func TestPageDecodesBareArray(t *testing.T) {
	var p Page[Tool]
	if err := json.Unmarshal([]byte(`[{"id": 1}, {"id": 2}]`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Count != 2 || len(p.Results) != 2 || p.HasNext() {
		t.Errorf("unexpected page: %+v", p)
	}
}

func TestPageDecodesResultsOnly(t *testing.T) {
	var p Page[BorrowRequest]
	if err := json.Unmarshal([]byte(`{"results": [{"id": 4, "status": "approved"}]}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Count != 1 || p.Results[0].ID != 4 {
		t.Errorf("unexpected page: %+v", p)
	}
}

func TestStatsMerge(t *testing.T) {
	tools := Stats{TotalTools: 10, AvailableTools: 6, MyTools: 2}
	requests := Stats{TotalUsers: 4, TotalBorrowed: 3, TotalLent: 1, TotalTools: 11}

	got := tools.Merge(requests)
	if got.TotalTools != 11 || got.AvailableTools != 6 || got.TotalUsers != 4 || got.TotalLent != 1 {
		t.Errorf("unexpected merge: %+v", got)
	}
}
