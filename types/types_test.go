package types

import "testing"

func TestMin(t *testing.T) {
	tests := []struct {
		name string
		a    int
		b    int
		want int
	}{
		{"a < b", 1, 2, 1},
		{"a > b", 5, 3, 3},
		{"a == b", 4, 4, 4},
		{"negative", -5, -3, -5},
		{"zero", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Min(tt.a, tt.b); got != tt.want {
				t.Errorf("Min(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMax(t *testing.T) {
	tests := []struct {
		name string
		a    int
		b    int
		want int
	}{
		{"a < b", 1, 2, 2},
		{"a > b", 5, 3, 5},
		{"a == b", 4, 4, 4},
		{"negative", -5, -3, -3},
		{"zero", 0, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Max(tt.a, tt.b); got != tt.want {
				t.Errorf("Max(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPDFEncryption(t *testing.T) {
	enc := &PDFEncryption{
		KeyLength:       16,
		V:               4,
		R:               4,
		P:               -3084,
		EncryptMetadata: false,
	}

	if enc.KeyLength != 16 {
		t.Errorf("Expected KeyLength=16, got %d", enc.KeyLength)
	}
	if enc.MethodForStreams() != CFMNone {
		t.Errorf("expected Identity default for /StmF, got %v", enc.MethodForStreams())
	}
}

func TestEncryptionCryptFilterResolution(t *testing.T) {
	enc := &PDFEncryption{
		V:    4,
		R:    4,
		StmF: "StdCF",
		StrF: "StdCF",
		CF: map[string]CryptFilterDescriptor{
			"StdCF": {CFM: CFMAESV2, Length: 16},
		},
	}

	if got := enc.MethodForStreams(); got != CFMAESV2 {
		t.Errorf("MethodForStreams() = %v, want AESV2", got)
	}
	if got := enc.MethodForStrings(); got != CFMAESV2 {
		t.Errorf("MethodForStrings() = %v, want AESV2", got)
	}
}

func TestEncryptionV5DefaultsToAESV3(t *testing.T) {
	enc := &PDFEncryption{V: 5, R: 6}
	if got := enc.MethodForStreams(); got != CFMAESV3 {
		t.Errorf("MethodForStreams() = %v, want AESV3", got)
	}
}

func TestPermissionsRoundTrip(t *testing.T) {
	tests := []int32{-3904, -44, -1, 0, -3900}
	for _, p := range tests {
		got := EncodePermissions(ParsePermissions(p))
		// Reserved bits normalize, so compare the decoded view instead of the
		// raw integer: re-parsing the round-tripped value must match.
		if ParsePermissions(got) != ParsePermissions(p) {
			t.Errorf("permission round-trip changed meaning for %d: got %d", p, got)
		}
	}
}

func TestParsePermissionsBits(t *testing.T) {
	// bit 3 (print) + bit 5 (copy) set, bits 1-12 otherwise clear.
	u := uint32(0xFFFFF000) | PermPrint | PermCopy
	p := int32(u)
	perm := ParsePermissions(p)
	if !perm.Print || !perm.Copy {
		t.Fatalf("expected Print and Copy set, got %+v", perm)
	}
	if perm.ModifyContents || perm.FillForms {
		t.Fatalf("expected ModifyContents and FillForms clear, got %+v", perm)
	}
}
