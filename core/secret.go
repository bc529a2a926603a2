package core

const redacted = "[REDACTED]"

// Secret holds an API key and keeps it out of logs. String, GoString and the
// JSON and text marshalers all print a placeholder; Expose returns the value.
//
//	key := NewSecret("sk-abc123")
//	fmt.Println(key)   // [REDACTED]
//	key.Hint()         // sk-...c123
//	key.Expose()       // sk-abc123
type Secret struct {
	value string
}

// NewSecret creates a new Secret from a string value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string {
	return "core.Secret{" + redacted + "}"
}

// MarshalJSON returns a redacted JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText returns a redacted text representation (used by YAML too).
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// UnmarshalText reads a plain value, so secrets can be loaded from config files.
func (s *Secret) UnmarshalText(text []byte) error {
	s.value = string(text)
	return nil
}

// Expose returns the actual secret value. Only use it where the value is
// needed, such as the Authorization header.
func (s Secret) Expose() string {
	return s.value
}

// Hint returns a short form safe to show to the key owner: the first three
// and last four characters. Keys shorter than 12 characters are fully masked.
func (s Secret) Hint() string {
	if len(s.value) < 12 {
		return redacted
	}
	return s.value[:3] + "..." + s.value[len(s.value)-4:]
}

// IsEmpty returns true if the secret value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
