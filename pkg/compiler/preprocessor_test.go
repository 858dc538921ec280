package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Plain",
			input: "t*128",
			want:  "t*128",
		},
		{
			name:  "Comments and Blank Lines",
			input: "// melody\n\nt*128 // loud\n",
			want:  "t*128",
		},
		{
			name:  "Multi Line",
			input: "(t*5&t>>7)\n|\n(t*3&t>>10)",
			want:  "(t*5&t>>7) | (t*3&t>>10)",
		},
		{
			name:  "Define",
			input: "#define BEAT (t>>11)\nt*(BEAT&3)",
			want:  "t*((t>>11)&3)",
		},
		{
			name:  "Nested Define",
			input: "#define BAR 13\n#define SLOW (t>>BAR)\nSLOW|SLOWER",
			want:  "(t>>13)|SLOWER",
		},
		{
			name:  "Literals Untouched",
			input: "#define ab 3\n0xab+ab",
			want:  "0xab+3",
		},
		{
			name:    "Single Letter Macro",
			input:   "#define t 5\nt",
			wantErr: true,
		},
		{
			name:    "Unknown Directive",
			input:   "#include \"x.bb\"\nt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Preprocess(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Preprocess() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Preprocess() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreprocessedProgramCompiles(t *testing.T) {
	src, err := Preprocess("#define BEAT (t>>11)\n// arpeggio\nt * ((BEAT & 3) + 4)\n")
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	prog.Set('t', 2048)
	if got, _ := prog.Run(); got != 2048*5 {
		t.Errorf("expected %d, got %d", 2048*5, got)
	}
}

func TestPreprocessExpansionLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("#define A0 t\n")
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "#define A%d A%d+A%d\n", i, i-1, i-1)
	}
	b.WriteString("A40\n")

	if _, err := Preprocess(b.String()); !errors.Is(err, ErrExpansionTooLong) {
		t.Fatalf("expected ErrExpansionTooLong, got %v", err)
	}

	// A few doublings are fine.
	got, err := Preprocess("#define A0 t\n#define A1 A0+A0\n#define A2 A1+A1\nA2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "t+t+t+t" {
		t.Errorf("Preprocess() = %q", got)
	}

	long := strings.Repeat("t+", MaxExpandedLen/2) + "t"
	if _, err := Preprocess(long); !errors.Is(err, ErrExpansionTooLong) {
		t.Errorf("expected oversized program to be rejected, got %v", err)
	}
}
