package values

// Signature is a detached content signature as served in collection
// metadata: the signature value plus the public key it verifies against.
type Signature struct {
	// Signature is the base64url-encoded raw signature value.
	Signature string `json:"signature"`

	// PublicKey is the PEM body of the verifying key.
	PublicKey string `json:"public_key"`

	// Ref optionally points at the full certificate chain.
	Ref string `json:"x5u,omitempty"`

	// Mode names the signing mode advertised by the signer (e.g. "p384ecdsa").
	Mode string `json:"mode,omitempty"`
}

// IsZero reports whether no signature is present.
func (s Signature) IsZero() bool {
	return s.Signature == "" && s.PublicKey == ""
}
