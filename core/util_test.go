package core

import "testing"

func TestCleanString(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		lower []bool
		want  string
	}{
		{name: "trim", s: "  Amani Juma \n", want: "Amani Juma"},
		{name: "trim and lower", s: " Amani@Kipimo.IO ", lower: []bool{true}, want: "amani@kipimo.io"},
		{name: "keep case", s: "Amani", lower: []bool{false}, want: "Amani"},
		{name: "blank", s: " \t ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanString(tc.s, tc.lower...); got != tc.want {
				t.Errorf("CleanString() = %q; want %q", got, tc.want)
			}
		})
	}
}
