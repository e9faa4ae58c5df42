package chain

import (
	"time"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/contract/greeter"
	"github.com/codypharm/Opensafari/internal/contract/token"
	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/memorydb"
)

const DefaultTxBufferSize = 1000

type Options struct {
	db           keyvaluedb.KeyValueDB
	registry     *contract.Registry
	txBufferSize uint
	clock        func() time.Time
}

type Option func(*Options)

func DefaultOptions() *Options {
	return &Options{
		txBufferSize: DefaultTxBufferSize,
		clock:        time.Now,
	}
}

// DefaultRegistry returns registry with all the contracts built into the node.
func DefaultRegistry() (*contract.Registry, error) {
	return contract.NewRegistry(token.Definition, greeter.Definition)
}

// WithDB sets the database the chain is persisted into, by default in-memory database is used.
func WithDB(db keyvaluedb.KeyValueDB) Option {
	return func(o *Options) {
		o.db = db
	}
}

func WithRegistry(r *contract.Registry) Option {
	return func(o *Options) {
		o.registry = r
	}
}

func WithTxBufferSize(size uint) Option {
	return func(o *Options) {
		o.txBufferSize = size
	}
}

// WithClock sets the source of block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

func (o *Options) init() error {
	if o.db == nil {
		o.db = memorydb.New()
	}
	if o.registry == nil {
		r, err := DefaultRegistry()
		if err != nil {
			return err
		}
		o.registry = r
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return nil
}
