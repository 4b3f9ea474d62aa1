package votes

import (
	"testing"

	"cityetl/records"
	"cityetl/schema"
)

func TestNormalizeVote(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Yes", records.VoteYes},
		{"YES", records.VoteYes},
		{"Voted yes", records.VoteYes},
		{"No", records.VoteNo},
		{"no", records.VoteNo},
		{"Absent", records.VoteAbsent},
		{"", records.VoteAbsent},
		{"Conflict of interest", records.VoteAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeVote(tt.raw); got != tt.want {
				t.Errorf("NormalizeVote(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMotionSubtype(t *testing.T) {
	tests := []struct {
		motionType string
		want       string
	}{
		{"Adopt Item", SubtypeAdoption},
		{"Adopt Item as Amended", SubtypeAdoption},
		{"Amend Item (Additional)", SubtypeAmend},
		{"Defer Item", SubtypeDefer},
		{"Deferral", SubtypeDefer},
		{"Refer Item", SubtypeRefer},
		{"Receive Item", SubtypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.motionType, func(t *testing.T) {
			if got := MotionSubtype(tt.motionType); got != tt.want {
				t.Errorf("MotionSubtype(%q) = %q, want %q", tt.motionType, got, tt.want)
			}
		})
	}
}

func adoptionRow(motionID, name, vote string) VoteRow {
	return VoteRow{MotionID: motionID, CouncillorName: name, Vote: vote, MotionType: "Adopt Item"}
}

func TestAdoptionVotePriority(t *testing.T) {
	tests := []struct {
		name  string
		votes []string
		want  string
	}{
		{"no overrides yes", []string{"No", "Yes"}, records.VoteNo},
		{"yes overrides absent", []string{"Absent", "Yes"}, records.VoteYes},
		{"absent never overrides", []string{"Yes", "Absent"}, records.VoteYes},
		{"later no overrides", []string{"Yes", "No"}, records.VoteNo},
		{"single absent kept", []string{"Absent"}, records.VoteAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for _, vote := range tt.votes {
				agg.Consume(adoptionRow("2026.EX1.1", "Councillor A", vote))
			}
			decisions := agg.Finalize(FinalizeOptions{})
			if len(decisions) != 1 {
				t.Fatalf("got %d decisions, want 1", len(decisions))
			}
			if got := decisions[0].Votes[0].FinalVote; got != tt.want {
				t.Errorf("final vote = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAmendDeferReferFlags(t *testing.T) {
	agg := NewAggregator()
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "Yes", MotionType: "Amend Item"})
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "No", MotionType: "Amend Item (Additional)"})
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "Absent", MotionType: "Amend Item"})
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "No", MotionType: "Defer Item"})
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "Yes", MotionType: "Refer Item"})
	agg.Consume(adoptionRow("m1", "A", "Yes"))

	decisions := agg.Finalize(FinalizeOptions{})
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1", len(decisions))
	}

	vote := decisions[0].Votes[0]
	if !vote.TriedToAmend {
		t.Error("TriedToAmend not set")
	}
	// Отсутствие на голосовании по поправке не учитывается в счётчиках
	if vote.AmendmentVotes.Yes != 1 || vote.AmendmentVotes.No != 1 {
		t.Errorf("amendment votes = %+v, want 1/1", vote.AmendmentVotes)
	}
	// Отсрочка засчитывается только при голосе Yes
	if vote.TriedToDefer {
		t.Error("TriedToDefer set on a No vote")
	}
	if !vote.TriedToRefer {
		t.Error("TriedToRefer not set on a Yes vote")
	}
}

func TestMotionWithoutAdoptionDropped(t *testing.T) {
	agg := NewAggregator()
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "A", Vote: "Yes", MotionType: "Amend Item"})
	agg.Consume(VoteRow{MotionID: "m2", CouncillorName: "A", Vote: "Yes", MotionType: "Adopt Item"})

	decisions := agg.Finalize(FinalizeOptions{})
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1", len(decisions))
	}
	if decisions[0].MotionID != "m2" {
		t.Errorf("surviving motion = %q, want m2", decisions[0].MotionID)
	}
}

func TestVoteOutcome(t *testing.T) {
	tests := []struct {
		name    string
		votes   map[string]string
		outcome string
		margin  int
	}{
		{
			name:    "passed",
			votes:   map[string]string{"A": "Yes", "B": "Yes", "C": "No"},
			outcome: records.OutcomePassed,
			margin:  1,
		},
		{
			name:    "failed on tie",
			votes:   map[string]string{"A": "Yes", "B": "No"},
			outcome: records.OutcomeFailed,
			margin:  0,
		},
		{
			name:    "unknown when only absences",
			votes:   map[string]string{"A": "Absent", "B": "Absent"},
			outcome: records.OutcomeUnknown,
			margin:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			// Детерминированный порядок потребления не требуется для исхода
			for name, vote := range tt.votes {
				agg.Consume(adoptionRow("m1", name, vote))
			}
			decisions := agg.Finalize(FinalizeOptions{})
			if len(decisions) != 1 {
				t.Fatalf("got %d decisions, want 1", len(decisions))
			}
			if decisions[0].VoteOutcome != tt.outcome {
				t.Errorf("outcome = %q, want %q", decisions[0].VoteOutcome, tt.outcome)
			}
			if decisions[0].VoteMargin != tt.margin {
				t.Errorf("margin = %d, want %d", decisions[0].VoteMargin, tt.margin)
			}
		})
	}
}

func TestDecisionMetadataAndOrdering(t *testing.T) {
	agg := NewAggregator()
	agg.Consume(VoteRow{
		MotionID:        "older",
		CouncillorName:  "A",
		Vote:            "Yes",
		MotionType:      "Adopt Item",
		MeetingDate:     "2025-03-10 14:00 PM",
		AgendaItemTitle: "Road resurfacing on Queen Street",
	})
	agg.Consume(VoteRow{
		MotionID:        "newer",
		CouncillorName:  "A",
		Vote:            "No",
		MotionType:      "Adopt Item",
		MeetingDate:     "2025-05-22 16:50 PM",
		AgendaItemTitle: "Affordable housing zoning amendment",
	})

	decisions := agg.Finalize(FinalizeOptions{SourceResourceID: "res-1", IngestedAt: "2026-01-01T00:00:00Z"})
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}

	// Недавние заседания первыми
	if decisions[0].MotionID != "newer" || decisions[0].MeetingDate != "2025-05-22" {
		t.Errorf("decision[0] = %s/%s", decisions[0].MotionID, decisions[0].MeetingDate)
	}
	if decisions[0].MotionTitle != "Affordable housing zoning amendment" {
		t.Errorf("title = %q", decisions[0].MotionTitle)
	}
	if decisions[0].MotionCategory != "housing_development" {
		t.Errorf("category = %q, want housing_development", decisions[0].MotionCategory)
	}
	if decisions[1].MotionCategory != "transportation" {
		t.Errorf("category = %q, want transportation", decisions[1].MotionCategory)
	}
	if decisions[0].SourceResourceID != "res-1" {
		t.Errorf("resource id = %q", decisions[0].SourceResourceID)
	}
}

func TestDecisionMotionTitleFallback(t *testing.T) {
	agg := NewAggregator()
	agg.Consume(VoteRow{
		MotionID:        "desc-only",
		CouncillorName:  "A",
		Vote:            "Yes",
		MotionType:      "Adopt Item",
		VoteDescription: "Majority required",
	})
	agg.Consume(VoteRow{
		MotionID:       "bare",
		CouncillorName: "A",
		Vote:           "Yes",
		MotionType:     "Adopt Item",
	})

	decisions := agg.Finalize(FinalizeOptions{})
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2", len(decisions))
	}

	titles := map[string]string{}
	for _, decision := range decisions {
		titles[decision.MotionID] = decision.MotionTitle
	}
	if titles["desc-only"] != "Majority required" {
		t.Errorf("desc-only title = %q", titles["desc-only"])
	}
	if titles["bare"] != "Motion bare" {
		t.Errorf("bare title = %q", titles["bare"])
	}
}

func TestRowFromCells(t *testing.T) {
	cols := &schema.VotingColumns{
		MotionIDCol:        0,
		VoteCol:            1,
		CouncillorCol:      -1,
		FirstNameCol:       2,
		LastNameCol:        3,
		AgendaTitleCol:     4,
		VoteDescriptionCol: -1,
		MeetingDateCol:     5,
		MotionTypeCol:      6,
	}

	row := RowFromCells(
		[]string{"2026.EX1.1", "Yes", "Jane", "Doe", "Budget adoption", "2026-02-01", "Adopt Item"},
		cols,
	)

	if row.CouncillorName != "Jane Doe" {
		t.Errorf("name = %q, want %q", row.CouncillorName, "Jane Doe")
	}
	if row.MotionID != "2026.EX1.1" || row.Vote != "Yes" || row.MotionType != "Adopt Item" {
		t.Errorf("row = %+v", row)
	}
}

func TestConsumeIgnoresIncompleteRows(t *testing.T) {
	agg := NewAggregator()
	agg.Consume(VoteRow{MotionID: "", CouncillorName: "A", Vote: "Yes", MotionType: "Adopt Item"})
	agg.Consume(VoteRow{MotionID: "m1", CouncillorName: "", Vote: "Yes", MotionType: "Adopt Item"})

	if decisions := agg.Finalize(FinalizeOptions{}); len(decisions) != 0 {
		t.Fatalf("got %d decisions, want 0", len(decisions))
	}
}
