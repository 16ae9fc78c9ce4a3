package projection

import (
	"testing"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/google/go-cmp/cmp"
)

func summaries(names ...string) []catalog.Summary {
	out := make([]catalog.Summary, len(names))
	for i, n := range names {
		out[i] = catalog.Summary{Name: n, Reference: "/pokemon/" + n}
	}
	return out
}

func namesOf(rs []catalog.Summary) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestProject(t *testing.T) {
	records := summaries("Pikachu", "pidgey", "Raichu", "pichu", "bulbasaur", "PIKIPEK")

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"prefix", "pi", []string{"Pikachu", "pidgey", "pichu", "PIKIPEK"}},
		{"mixed case term", "PiK", []string{"Pikachu", "PIKIPEK"}},
		{"infix", "chu", []string{"Pikachu", "Raichu", "pichu"}},
		{"no match", "zz", []string{}},
		{"whole name", "bulbasaur", []string{"bulbasaur"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := namesOf(Project(records, tt.term))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Project(%q) mismatch (-want +got):\n%s", tt.term, diff)
			}
		})
	}
}

func TestProject_EmptyTermReturnsInput(t *testing.T) {
	records := summaries("a", "b", "c")
	got := Project(records, "")

	if len(got) != len(records) || &got[0] != &records[0] {
		t.Fatal("Project with empty term should return the same slice")
	}

	if Project(nil, "") != nil {
		t.Error("Project(nil, \"\") should be nil")
	}
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	records := summaries("pikachu", "raichu", "pichu")
	before := namesOf(records)

	_ = Project(records, "rai")

	if diff := cmp.Diff(before, namesOf(records)); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestProjectWith_Fuzzy(t *testing.T) {
	records := summaries("pikachu", "pidgeotto", "raichu", "pikipek", "pichu")

	got := namesOf(ProjectWith(ModeFuzzy, records, "pkc"))
	if diff := cmp.Diff([]string{"pikachu"}, got); diff != "" {
		t.Errorf("fuzzy mismatch (-want +got):\n%s", diff)
	}

	ranked := namesOf(ProjectWith(ModeFuzzy, records, "CHU"))
	if diff := cmp.Diff([]string{"pichu", "raichu", "pikachu"}, ranked); diff != "" {
		t.Errorf("fuzzy ranking mismatch (-want +got):\n%s", diff)
	}

	ties := namesOf(ProjectWith(ModeFuzzy, records, "pik"))
	if diff := cmp.Diff([]string{"pikachu", "pikipek"}, ties); diff != "" {
		t.Errorf("equal distances should keep original order (-want +got):\n%s", diff)
	}

	all := ProjectWith(ModeFuzzy, records, "")
	if &all[0] != &records[0] {
		t.Error("fuzzy mode with empty term should return the same slice")
	}
}

func TestProjectWith_SubstringDefault(t *testing.T) {
	records := summaries("pikachu", "raichu")
	got := namesOf(ProjectWith(ModeSubstring, records, "AIC"))
	if diff := cmp.Diff([]string{"raichu"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSubstring, false},
		{"substring", ModeSubstring, false},
		{" Fuzzy ", ModeFuzzy, false},
		{"regex", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
