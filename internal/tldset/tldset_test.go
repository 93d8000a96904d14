package tldset

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"com,.IO, dev", []string{".com", ".io", ".dev"}, false},
		{".com,.com,.net", []string{".com", ".net"}, false},
		{"co.uk", []string{".co.uk"}, false},
		{"", nil, true},
		{" , ", nil, true},
		{".com,..bad", nil, true},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tc.in, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("Parse(%q): got %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Parse(%q)[%d]: got %q, want %q (order must be preserved)", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParse_Preset(t *testing.T) {
	t.Parallel()

	got, err := Parse("popular")
	if err != nil {
		t.Fatalf("Parse(popular): %v", err)
	}
	if len(got) == 0 || got[0] != ".com" {
		t.Fatalf("Parse(popular)=%v, want .com first", got)
	}
}

func TestPresetNames(t *testing.T) {
	t.Parallel()

	names := PresetNames()
	if len(names) != 3 {
		t.Fatalf("PresetNames()=%v, want 3 presets", names)
	}
	for _, name := range names {
		if _, ok := Preset(name); !ok {
			t.Fatalf("Preset(%q) missing", name)
		}
	}
}
