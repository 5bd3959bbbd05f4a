package auth

import "testing"

type fakeValidator map[string]struct{}

func (f fakeValidator) IsValidKey(key string) bool {
	_, ok := f[key]
	return ok
}

func TestGuardAuthorize(t *testing.T) {
	validator := fakeValidator{"secret": {}}

	cases := []struct {
		name    string
		require bool
		key     string
		want    bool
	}{
		{name: "strict valid", require: true, key: "secret", want: true},
		{name: "strict wrong", require: true, key: "nope", want: false},
		{name: "strict missing", require: true, key: "", want: false},
		{name: "strict blank", require: true, key: "   ", want: false},
		{name: "lenient valid", require: false, key: "secret", want: true},
		{name: "lenient wrong", require: false, key: "nope", want: false},
		{name: "lenient missing", require: false, key: "", want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			guard := Guard{Validator: validator, RequireHeader: tc.require}
			if got := guard.Authorize(tc.key); got != tc.want {
				t.Fatalf("Authorize(%q) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestGuardWithoutValidatorRejectsKeys(t *testing.T) {
	guard := Guard{RequireHeader: false}
	if guard.Authorize("anything") {
		t.Fatalf("expected rejection when no validator is configured")
	}
	if !guard.Authorize("") {
		t.Fatalf("expected lenient guard to allow a missing key")
	}
}
