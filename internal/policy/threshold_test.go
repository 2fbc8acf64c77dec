package policy

import (
	"testing"

	"github.com/ppiankov/clawshield/internal/models"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Status
		wantErr bool
	}{
		{"BLOCKED", models.StatusBlocked, false},
		{"warning", models.StatusWarning, false},
		{" Caution ", models.StatusCaution, false},
		{"CLEAN", "", true},
		{"LOW", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseThreshold(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseThreshold(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseThreshold(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
}

func TestDefaultThreshold(t *testing.T) {
	if DefaultThreshold(false) != models.StatusWarning {
		t.Error("expected WARNING for unprivileged installs")
	}
	if DefaultThreshold(true) != models.StatusCaution {
		t.Error("expected CAUTION for root installs")
	}
}

func TestShouldBlock(t *testing.T) {
	statuses := []models.Status{models.StatusClean, models.StatusCaution, models.StatusWarning, models.StatusBlocked}
	tests := []struct {
		threshold models.Status
		blocked   []bool // indexed like statuses
	}{
		{models.StatusBlocked, []bool{false, false, false, true}},
		{models.StatusWarning, []bool{false, false, true, true}},
		{models.StatusCaution, []bool{false, true, true, true}},
		{models.Status("BOGUS"), []bool{false, false, false, true}},
	}
	for _, tt := range tests {
		for i, s := range statuses {
			if got := ShouldBlock(s, tt.threshold); got != tt.blocked[i] {
				t.Errorf("ShouldBlock(%s, %s) = %v, want %v", s, tt.threshold, got, tt.blocked[i])
			}
		}
	}
}
