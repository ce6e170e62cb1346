package main

import "testing"

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		spec      string
		pageCount int
		first     int
		last      int
		wantErr   bool
	}{
		{"all", 5, 0, 4, false},
		{"", 5, 0, 4, false},
		{"2", 5, 2, 2, false},
		{"1-3", 5, 1, 3, false},
		{"0-0", 1, 0, 0, false},
		{"5", 5, 0, 0, true},
		{"-1", 5, 0, 0, true},
		{"3-1", 5, 0, 0, true},
		{"1-9", 5, 0, 0, true},
		{"one", 5, 0, 0, true},
		{"1-x", 5, 0, 0, true},
	}

	for _, test := range tests {
		first, last, err := parsePageRange(test.spec, test.pageCount)
		if test.wantErr {
			if err == nil {
				t.Errorf("parsePageRange(%q, %d): expected error", test.spec, test.pageCount)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePageRange(%q, %d) failed: %v", test.spec, test.pageCount, err)
			continue
		}
		if first != test.first || last != test.last {
			t.Errorf("parsePageRange(%q, %d) = %d-%d, want %d-%d", test.spec, test.pageCount, first, last, test.first, test.last)
		}
	}
}
