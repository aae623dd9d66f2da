package validator

import "testing"

type listFilter struct {
	Priority string `validate:"priority"`
}

func TestPriorityRule(t *testing.T) {
	v := New()

	cases := []struct {
		name     string
		priority string
		wantErr  bool
	}{
		{"empty passes as optional filter", "", false},
		{"known level", "CRITICAL", false},
		{"lowercase rejected", "critical", true},
		{"unknown level", "URGENT", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(&listFilter{Priority: tc.priority})
			if (err != nil) != tc.wantErr {
				t.Fatalf("priority %q: got err=%v, want error=%v", tc.priority, err, tc.wantErr)
			}
		})
	}
}

func TestRequiredStillEnforced(t *testing.T) {
	v := New()
	req := struct {
		Name string `validate:"required"`
	}{}
	if err := v.Validate(&req); err == nil {
		t.Fatal("expected a validation error for missing name")
	}
}
