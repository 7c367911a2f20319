package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusNew, StatusEnriching, true},
		{StatusNew, StatusScoring, true},
		{StatusNew, StatusQualified, false},
		{StatusEnriching, StatusEnriched, true},
		{StatusEnriching, StatusNew, true},
		{StatusEnriched, StatusScoring, true},
		{StatusEnriched, StatusSentToCRM, false},
		{StatusScoring, StatusQualified, true},
		{StatusScoring, StatusUnqualified, true},
		{StatusQualified, StatusSentToCRM, true},
		{StatusQualified, StatusScoring, true},
		{StatusUnqualified, StatusScoring, true},
		{StatusUnqualified, StatusEnriching, true},
		{StatusUnqualified, StatusSentToCRM, false},
		{StatusSentToCRM, StatusConverted, true},
		{StatusSentToCRM, StatusLost, true},
		{StatusSentToCRM, StatusScoring, true},
		{StatusConverted, StatusScoring, false},
		{StatusConverted, StatusLost, false},
		{StatusLost, StatusScoring, false},
		{StatusLost, StatusNew, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(StatusNew, StatusEnriching); err != nil {
		t.Fatalf("legal edge rejected: %v", err)
	}
	if err := ValidateTransition(StatusConverted, StatusScoring); err == nil {
		t.Fatal("terminal state should reject every edge")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusEnriching, StatusEnriched, StatusScoring, StatusQualified, StatusUnqualified, StatusSentToCRM} {
		if IsTerminal(s) {
			t.Errorf("%s marked terminal", s)
		}
	}
	for _, s := range []Status{StatusConverted, StatusLost} {
		if !IsTerminal(s) {
			t.Errorf("%s not marked terminal", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !Status("QUALIFIED").IsValid() {
		t.Error("QUALIFIED should be a valid status")
	}
	if Status("PENDING").IsValid() {
		t.Error("PENDING is not a member of the enum")
	}
}

func TestQualifiedStatus(t *testing.T) {
	tests := []struct {
		score int
		want  Status
	}{
		{0, StatusUnqualified},
		{59, StatusUnqualified},
		{60, StatusQualified},
		{100, StatusQualified},
	}

	for _, tt := range tests {
		if got := QualifiedStatus(tt.score); got != tt.want {
			t.Errorf("QualifiedStatus(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
