package document

import "github.com/go-playground/validator/v10"

var optionsValidator = validator.New()

// CredentialsMode discriminates the Credentials variant: either no password
// is supplied at all (the empty password is still tried), or an explicit
// password byte string is.
type CredentialsMode string

const (
	CredentialsNone     CredentialsMode = "none"
	CredentialsPassword CredentialsMode = "password"
)

// Credentials is the explicit variant form of document-open credentials:
// `{ PasswordBytes(bytes) }` or the absence of one.
type Credentials struct {
	Mode     CredentialsMode `validate:"required,oneof=none password"`
	Password []byte
}

// NoCredentials requests authentication with only the empty password.
func NoCredentials() Credentials {
	return Credentials{Mode: CredentialsNone}
}

// PasswordCredentials supplies an explicit password to try after the empty
// password.
func PasswordCredentials(password []byte) Credentials {
	return Credentials{Mode: CredentialsPassword, Password: password}
}

// LoadOptions controls Open's behavior.
type LoadOptions struct {
	// Credentials supplies the password to authenticate against the
	// security handler, if any. The zero value is equivalent to NoCredentials().
	Credentials Credentials `validate:"-"`
	// Lenient, the default, downgrades recoverable parse problems (an
	// unresolvable page tree node, a malformed optional field) to warnings
	// on the returned Document instead of failing Open outright.
	Lenient bool
	// Verbose enables log.Printf diagnostics across every package Open
	// touches.
	Verbose bool
}

// DefaultLoadOptions returns the spec default: no credentials, lenient
// parsing, quiet logging.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Credentials: NoCredentials(), Lenient: true}
}

func (o LoadOptions) validate() error {
	if o.Credentials.Mode == "" {
		o.Credentials.Mode = CredentialsNone
	}
	return optionsValidator.Struct(o.Credentials)
}

// password returns the byte string to try, honoring the Credentials variant.
func (o LoadOptions) password() []byte {
	if o.Credentials.Mode == CredentialsPassword {
		return o.Credentials.Password
	}
	return nil
}
