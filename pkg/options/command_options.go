package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CommandOptions)(nil)

// CommandOptions holds the product-tunable control-plane constants.
type CommandOptions struct {
	// Timeout is how long a pending command may wait for an ack before
	// the read path resolves it to timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Cooldown is the minimum interval between two hardware actions on
	// the same physical resource, enforced on the edge.
	Cooldown time.Duration `json:"cooldown" mapstructure:"cooldown"`

	// EntryTTL is how long a terminal command lane entry stays readable
	// in the store past its timeout deadline.
	EntryTTL time.Duration `json:"entry-ttl" mapstructure:"entry-ttl"`
}

// NewCommandOptions creates CommandOptions with the product defaults.
func NewCommandOptions() *CommandOptions {
	return &CommandOptions{
		Timeout:  15 * time.Second,
		Cooldown: 3 * time.Second,
		EntryTTL: 24 * time.Hour,
	}
}

func (o *CommandOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Timeout <= 0 {
		errors = append(errors, fmt.Errorf("command.timeout must be positive"))
	}
	if o.Cooldown < 0 {
		errors = append(errors, fmt.Errorf("command.cooldown must not be negative"))
	}

	return errors
}

func (o *CommandOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Timeout, "command.timeout", o.Timeout, "How long a pending command waits for an ack before timing out.")
	fs.DurationVar(&o.Cooldown, "command.cooldown", o.Cooldown, "Minimum interval between hardware actions on one resource.")
	fs.DurationVar(&o.EntryTTL, "command.entry-ttl", o.EntryTTL, "Retention of terminal command entries in the store.")
}
