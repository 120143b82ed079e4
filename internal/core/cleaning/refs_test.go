package cleaning

import (
	"reflect"
	"testing"
)

func TestExtractResolutionSymbols(t *testing.T) {
	cases := []struct {
		name  string
		notes []string
		want  []string
	}{
		{
			name:  "enumeration with and",
			notes: []string{"Recalling General Assembly resolutions 78/70 and 79/1"},
			want:  []string{"A/RES/78/70", "A/RES/79/1"},
		},
		{
			name:  "part suffix",
			notes: []string{"Submitted pursuant to General Assembly resolution 77/276 A."},
			want:  []string{"A/RES/77/276 A"},
		},
		{
			name:  "security council year form",
			notes: []string{"Pursuant to Security Council resolution 2716 (2023)"},
			want:  []string{"S/RES/2716 (2023)"},
		},
		{
			name:  "security council enumeration",
			notes: []string{"Security Council resolutions 2231 (2015) and 2716(2023)"},
			want:  []string{"S/RES/2231 (2015)", "S/RES/2716 (2023)"},
		},
		{
			name:  "ecosoc and hrc",
			notes: []string{"Economic and Social Council resolution 2024/12", "Human Rights Council resolutions 55/2, 56/1"},
			want:  []string{"E/RES/2024/12", "A/HRC/RES/55/2", "A/HRC/RES/56/1"},
		},
		{
			name:  "ecosoc acronym",
			notes: []string{"Endorsed by ECOSOC resolution 2020/5"},
			want:  []string{"E/RES/2020/5"},
		},
		{
			name: "deduplicated across notes in first occurrence order",
			notes: []string{
				"Recalling General Assembly resolution 78/70",
				"See also General Assembly resolutions 78/70 and 79/1",
			},
			want: []string{"A/RES/78/70", "A/RES/79/1"},
		},
		{
			name:  "case-insensitive body mention",
			notes: []string{"pursuant to general assembly RESOLUTION 78/70"},
			want:  []string{"A/RES/78/70"},
		},
		{
			name:  "no citations",
			notes: []string{"Transmitted by a note verbale.", ""},
			want:  nil,
		},
	}
	for _, tc := range cases {
		got := ExtractResolutionSymbols(tc.notes)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
