package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group so app builders can treat
// them uniformly.
type IOptions interface {
	// Validate checks the option values entered at the command line.
	Validate() []error

	// AddFlags binds the option group's flags to the given FlagSet.
	// Optional prefixes let a binary mount the same group twice.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port the server can bind.
func ValidateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}
