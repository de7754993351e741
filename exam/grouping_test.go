package exam

import (
	"reflect"
	"testing"

	"examview-server/models"
)

func TestGroupByContextRoundTrip(t *testing.T) {
	flat := Flatten(sampleExam())
	groups := GroupByContext(flat)
	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}

	var rebuilt []models.FlatQuestion
	for _, g := range groups {
		rebuilt = append(rebuilt, g.Questions...)
		if !g.Questions[0].IsFirstInGroup {
			t.Fatalf("group %s does not start with its first question", g.GroupID)
		}
		for _, q := range g.Questions[1:] {
			if q.IsFirstInGroup {
				t.Fatalf("group %s has more than one first question", g.GroupID)
			}
			if q.GroupID != g.GroupID {
				t.Fatalf("question %s leaked into group %s", q.ID, g.GroupID)
			}
		}
	}
	if !reflect.DeepEqual(rebuilt, flat) {
		t.Fatal("concatenated groups do not reproduce the flattened sequence")
	}
}

func TestGroupByContextCarriesHeader(t *testing.T) {
	groups := GroupByContext(Flatten(sampleExam()))
	reading := groups[3]
	if reading.Type != models.TypeReading || reading.GroupID != "rd1" {
		t.Fatalf("unexpected reading group: %+v", reading)
	}
	if reading.Context == nil || *reading.Context != "Passage" {
		t.Fatal("reading context missing")
	}
	if groups[1].Context != nil {
		t.Fatal("reorder group should have no context")
	}
}

func TestGroupByContextOrphanFallback(t *testing.T) {
	orphan := models.FlatQuestion{Num: 1, ID: "x-1", Type: models.TypeFillLong, GroupID: "x", Context: strPtr("ignored")}
	groups := GroupByContext([]models.FlatQuestion{orphan})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Context != nil {
		t.Fatal("fallback group must not have a context")
	}
	if groups[0].Type != models.TypeFillLong || groups[0].GroupID != "x" {
		t.Fatalf("fallback group header wrong: %+v", groups[0])
	}
}

func TestGroupByContextEmpty(t *testing.T) {
	if got := GroupByContext(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
}
