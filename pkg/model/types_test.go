package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestClone_PreservesEmptySlices(t *testing.T) {
	c := &Contract{
		ID:    "c1",
		Tags:  []string{},
		Files: []string{},
	}
	out := c.Clone()
	if out.Tags == nil || out.Files == nil {
		t.Fatal("Clone turned empty tags/files into nil")
	}

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	if strings.Contains(body, `"tags":null`) || strings.Contains(body, `"files":null`) {
		t.Fatalf("empty slices serialized as null: %s", body)
	}
}

func TestClone_DeepCopies(t *testing.T) {
	due := time.Now().UTC()
	c := &Contract{
		ID:       "c1",
		Tags:     []string{"auth"},
		Files:    []string{"a.go"},
		Metadata: map[string]string{"k": "v"},
		DueAt:    &due,
		History:  []HistoryEntry{{ID: "h1", Status: StatusProposed}},
	}
	out := c.Clone()

	out.Tags[0] = "changed"
	out.Files[0] = "changed"
	out.Metadata["k"] = "changed"
	*out.DueAt = out.DueAt.Add(time.Hour)
	out.History[0].Status = StatusFailed

	if c.Tags[0] != "auth" || c.Files[0] != "a.go" {
		t.Fatal("clone shares slice backing with the original")
	}
	if c.Metadata["k"] != "v" {
		t.Fatal("clone shares the metadata map with the original")
	}
	if !c.DueAt.Equal(due) {
		t.Fatal("clone shares the DueAt pointer with the original")
	}
	if c.History[0].Status != StatusProposed {
		t.Fatal("clone shares history with the original")
	}
}

func TestClone_NilFieldsStayNil(t *testing.T) {
	c := &Contract{ID: "c1"}
	out := c.Clone()
	if out.Tags != nil || out.Files != nil || out.Metadata != nil || out.DueAt != nil {
		t.Fatalf("clone invented values for nil fields: %+v", out)
	}
}
