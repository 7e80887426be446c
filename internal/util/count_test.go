package util

import "testing"

func TestParseCount(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  int
	}{
		{name: "int", input: 12, want: 12},
		{name: "float truncates", input: 3.9, want: 3},
		{name: "string", input: " 7 ", want: 7},
		{name: "thousand dot", input: "1.000", want: 1000},
		{name: "thousand comma", input: "2,500", want: 2500},
		{name: "thousand space", input: "1 200", want: 1200},
		{name: "decimal comma", input: "4,5", want: 4},
		{name: "negative", input: -3, want: 0},
		{name: "nil", input: nil, want: 0},
		{name: "empty", input: "  ", want: 0},
		{name: "text", input: "n/a", want: 0},
		{name: "bool", input: true, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseCount(tc.input); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestFindColumn(t *testing.T) {
	cols := []string{"id", " DNI_Doc ", "Full Name"}
	if got := FindColumn(cols, []string{"dni", "doc", "num_doc"}); got != 1 {
		t.Fatalf("doc idx=%d", got)
	}
	if got := FindColumn(cols, []string{"name"}); got != 2 {
		t.Fatalf("name idx=%d", got)
	}
	if got := FindColumn(cols, []string{"doc"}, 1); got != -1 {
		t.Fatalf("skip idx=%d", got)
	}
	if got := FindColumnExact([]string{"  Total   Records "}, []string{"total records"}); got != 0 {
		t.Fatalf("exact idx=%d", got)
	}
}

func TestSnakeLower(t *testing.T) {
	if got := SnakeLower("SAN  JUAN "); got != "san_juan" {
		t.Fatalf("got %q", got)
	}
}
