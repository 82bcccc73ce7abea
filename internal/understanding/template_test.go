package understanding

import "testing"

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{
		VarProfileName: "Teaching",
		VarIntent:      "question",
		VarMaxLength:   "120",
	}

	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr bool
	}{
		{"plain", "no placeholders", "no placeholders", false},
		{"vars", "{profile_name}: {intent} <= {max_length}", "Teaching: question <= 120", false},
		{"escaped", "json {{\"a\": {intent}}}", "json {\"a\": question}", false},
		{"unicode", "→ {intent} ←", "→ question ←", false},
		{"unknown", "hi {nope} {intent}", "hi {nope} {intent}", true},
		{"missing value", "{topic}", "{topic}", true},
		{"unclosed", "{intent", "{intent", true},
		{"stray close", "a } b", "a } b", true},
		{"empty name", "{}", "{}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.tmpl, vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
