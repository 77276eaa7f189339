package leads

import (
	"context"
	"errors"
	"testing"

	"admissions-backend/internal/universities"
)

func setupLeads(t *testing.T) (*Service, string) {
	t.Helper()
	uniRepo := universities.NewMemoryRepo()
	uni := universities.University{ID: "uni-1", Name: "Test University", Code: "TU"}
	if err := uniRepo.Create(context.Background(), uni); err != nil {
		t.Fatalf("create university: %v", err)
	}
	return &Service{Repo: NewMemoryRepo(), UniRepo: uniRepo}, uni.ID
}

func TestCreateLeadStartsNew(t *testing.T) {
	svc, uniID := setupLeads(t)

	lead, err := svc.Create(context.Background(), uniID, "Ravi Kumar", "ravi@example.com", "+911234567890", "website")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.Stage != StageNew {
		t.Fatalf("expected new stage, got %s", lead.Stage)
	}
}

func TestStagePipeline(t *testing.T) {
	svc, uniID := setupLeads(t)
	lead, _ := svc.Create(context.Background(), uniID, "Ravi Kumar", "", "", "walk-in")

	// Jumping straight to converted is rejected.
	if _, err := svc.AdvanceStage(context.Background(), lead.ID, uniID, StageConverted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for new -> converted, got %v", err)
	}

	for _, stage := range []string{StageContacted, StageQualified, StageConverted} {
		updated, err := svc.AdvanceStage(context.Background(), lead.ID, uniID, stage)
		if err != nil {
			t.Fatalf("advance to %s: %v", stage, err)
		}
		if updated.Stage != stage {
			t.Fatalf("expected %s, got %s", stage, updated.Stage)
		}
	}

	// Terminal stages accept no further moves.
	if _, err := svc.AdvanceStage(context.Background(), lead.ID, uniID, StageLost); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState from converted, got %v", err)
	}
}

func TestLostFromAnyActiveStage(t *testing.T) {
	svc, uniID := setupLeads(t)
	lead, _ := svc.Create(context.Background(), uniID, "Ravi Kumar", "", "", "")

	updated, err := svc.AdvanceStage(context.Background(), lead.ID, uniID, StageLost)
	if err != nil {
		t.Fatalf("advance to lost: %v", err)
	}
	if updated.Stage != StageLost {
		t.Fatalf("expected lost, got %s", updated.Stage)
	}
}

func TestAssignAndNote(t *testing.T) {
	svc, uniID := setupLeads(t)
	lead, _ := svc.Create(context.Background(), uniID, "Ravi Kumar", "", "", "")

	assigned, err := svc.Assign(context.Background(), lead.ID, uniID, "counsellor-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.AssignedTo != "counsellor-1" {
		t.Fatalf("expected assignment, got %q", assigned.AssignedTo)
	}

	noted, err := svc.AddNote(context.Background(), lead.ID, uniID, "counsellor-1", "called, call back tomorrow")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if len(noted.Notes) != 1 || noted.Notes[0].AuthorID != "counsellor-1" {
		t.Fatalf("expected one note, got %v", noted.Notes)
	}
}

func TestUniversityScoping(t *testing.T) {
	svc, uniID := setupLeads(t)
	lead, _ := svc.Create(context.Background(), uniID, "Ravi Kumar", "", "", "")

	if _, err := svc.Get(context.Background(), lead.ID, "uni-other"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, uniID := setupLeads(t)
	a, _ := svc.Create(context.Background(), uniID, "A", "", "", "")
	b, _ := svc.Create(context.Background(), uniID, "B", "", "", "")
	_, _ = svc.AdvanceStage(context.Background(), a.ID, uniID, StageContacted)
	_, _ = svc.Assign(context.Background(), b.ID, uniID, "counsellor-1")

	contacted, err := svc.List(context.Background(), uniID, Filter{Stage: StageContacted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(contacted) != 1 || contacted[0].ID != a.ID {
		t.Fatalf("expected only the contacted lead, got %v", contacted)
	}

	mine, err := svc.List(context.Background(), uniID, Filter{AssignedTo: "counsellor-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != b.ID {
		t.Fatalf("expected only the assigned lead, got %v", mine)
	}
}
