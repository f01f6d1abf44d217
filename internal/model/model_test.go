package model

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []JobStatus{StatusNew, StatusViewed, StatusApplied, StatusRejected, StatusArchived, StatusInterview} {
		if !ValidStatus(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []JobStatus{"", "bogus", "Applied", "NEW"} {
		if ValidStatus(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.ScanInterval == "" || s.Locations == nil {
		t.Fatalf("defaults incomplete: %+v", s)
	}
}
