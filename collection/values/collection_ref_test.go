package values

import "testing"

func TestNewCollectionRef(t *testing.T) {
	ref, err := NewCollectionRef("blocklists", "certificates")
	if err != nil {
		t.Fatalf("NewCollectionRef: %v", err)
	}
	if ref.Bucket() != "blocklists" {
		t.Errorf("Bucket() = %v, want blocklists", ref.Bucket())
	}
	if ref.Collection() != "certificates" {
		t.Errorf("Collection() = %v, want certificates", ref.Collection())
	}
	if ref.String() != "blocklists/certificates" {
		t.Errorf("String() = %v", ref.String())
	}
	if ref.Endpoint() != "/buckets/blocklists/collections/certificates" {
		t.Errorf("Endpoint() = %v", ref.Endpoint())
	}

	if _, err := NewCollectionRef("", "certificates"); err == nil {
		t.Error("empty bucket should be rejected")
	}
	if _, err := NewCollectionRef("blocklists", ""); err == nil {
		t.Error("empty collection should be rejected")
	}
}

func TestParseCollectionRef(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantBkt  string
		wantColl string
	}{
		{
			name:     "Simple",
			input:    "pinning/pins",
			wantBkt:  "pinning",
			wantColl: "pins",
		},
		{
			name:    "NoSeparator",
			input:   "pins",
			wantErr: true,
		},
		{
			name:    "TooManyParts",
			input:   "a/b/c",
			wantErr: true,
		},
		{
			name:    "EmptyBucket",
			input:   "/pins",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseCollectionRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCollectionRef(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCollectionRef(%q): %v", tt.input, err)
			}
			if ref.Bucket() != tt.wantBkt {
				t.Errorf("Bucket() = %v, want %v", ref.Bucket(), tt.wantBkt)
			}
			if ref.Collection() != tt.wantColl {
				t.Errorf("Collection() = %v, want %v", ref.Collection(), tt.wantColl)
			}
		})
	}
}

func TestCollectionRefEquals(t *testing.T) {
	a, _ := NewCollectionRef("monitor", "changes")
	b, _ := NewCollectionRef("monitor", "changes")
	c, _ := NewCollectionRef("monitor", "quicksuggest")

	if !a.Equals(b) {
		t.Error("identical refs should be equal")
	}
	if a.Equals(c) {
		t.Error("different refs should not be equal")
	}
}
