package testutil

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v
}

func TestIsSubset(t *testing.T) {
	tests := []struct {
		expected, actual string
		want             bool
	}{
		{`{"code":"E_NAME"}`, `{"code":"E_NAME","message":"x"}`, true},
		{`{"code":"E_TYPE"}`, `{"code":"E_NAME"}`, false},
		{`[{"code":"E_PARSE"}]`, `[{"code":"E_PARSE","span":{"startLine":1}}]`, true},
		{`[{"a":1},{"a":2}]`, `[{"a":1}]`, false},
		{`{"span":{"startLine":2}}`, `{"span":{"startLine":2,"startCol":4}}`, true},
		{`null`, `null`, true},
		{`true`, `"true"`, false},
	}
	for _, tt := range tests {
		got := IsSubset(decode(t, tt.expected), decode(t, tt.actual))
		if got != tt.want {
			t.Errorf("IsSubset(%s, %s) = %v, want %v", tt.expected, tt.actual, got, tt.want)
		}
	}
}

func TestReadProgramFileSkipsFlags(t *testing.T) {
	src, name, err := ReadProgramFile("../../"+ScenariosDir+"/if-else", []string{"run", "--pretty", "program.br"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "program.br" || src == "" {
		t.Errorf("got name %q, source %q", name, src)
	}
}
