// Package credentials resolves opaque credential references into secret
// material and hands that material out only for the lifetime of one stage.
//
// Secret values travel as Secret, whose every printable form is redacted.
// Repository access is produced as a RepoAccess that owns any temporary key
// file and must be released; WithRepoAccess and WithSecretText do that on
// every exit path.
package credentials

import (
	"encoding/json"
	"fmt"

	"github.com/mrz1836/codexbuild/internal/logging"
)

// Kind is the type of secret a credential reference resolves to.
type Kind string

// Credential kinds.
const (
	KindSecretText       Kind = "secret_text"
	KindUsernamePassword Kind = "username_password"
	KindSSHPrivateKey    Kind = "ssh_private_key"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSecretText, KindUsernamePassword, KindSSHPrivateKey:
		return true
	}
	return false
}

// Secret holds a sensitive string. It never prints, marshals or logs its
// value; Reveal is the only way to read it.
type Secret struct {
	value string
}

// NewSecret wraps a sensitive value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the underlying value. Call it only at the point of use
// (argv, environment, file write).
func (s Secret) Reveal() string {
	return s.value
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return logging.RedactedValue
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (s Secret) GoString() string {
	return fmt.Sprintf("credentials.Secret(%q)", s.String())
}

// MarshalJSON implements json.Marshaler. zerolog's Interface uses it.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Record is a credential as stored by a Store: a kind and its raw fields.
type Record struct {
	Kind           Kind   `yaml:"kind"`
	Secret         string `yaml:"secret,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	PrivateKey     string `yaml:"private_key,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty"`
}

// Material is resolved secret material for one credential reference.
// Only the fields matching Kind are populated.
type Material struct {
	Ref        string
	Kind       Kind
	Token      Secret
	Username   string
	Password   Secret
	PrivateKey Secret
	Passphrase Secret
}

// Release drops every reference to the secret values held by m.
func (m *Material) Release() {
	if m == nil {
		return
	}
	m.Token = Secret{}
	m.Password = Secret{}
	m.PrivateKey = Secret{}
	m.Passphrase = Secret{}
}
