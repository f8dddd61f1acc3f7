package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions configures the embedded key-value store backing command
// lanes, presence records, and the edge desired-state snapshots.
type StoreOptions struct {
	// Path is the directory for the store's files. Empty selects the
	// in-memory mode, which does not survive a restart.
	Path string `json:"path" mapstructure:"path"`

	// SyncWrites forces an fsync per write. Slower, but a command state
	// acknowledged to a caller is guaranteed to survive a crash.
	SyncWrites bool `json:"sync-writes" mapstructure:"sync-writes"`

	// InMemory disables disk persistence entirely. For tests and dev.
	InMemory bool `json:"in-memory" mapstructure:"in-memory"`
}

// NewStoreOptions creates StoreOptions with production defaults.
func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Path:       "/var/lib/pitwall/store",
		SyncWrites: true,
	}
}

func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if !o.InMemory && o.Path == "" {
		errors = append(errors, fmt.Errorf("store.path is required unless store.in-memory is set"))
	}

	return errors
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "store.path", o.Path, "Directory for the embedded store's files.")
	fs.BoolVar(&o.SyncWrites, "store.sync-writes", o.SyncWrites, "Fsync every write to the embedded store.")
	fs.BoolVar(&o.InMemory, "store.in-memory", o.InMemory, "Run the embedded store in memory only (dev/test).")
}
