package cache

// Nop is a backend used in dry-run mode. It loads an empty cache and discards
// saves, so every listing appears new on each run.
type Nop struct{}

func NewNop() *Nop { return &Nop{} }

func (Nop) Load() (*Cache, error) { return New(), nil }
func (Nop) Save(*Cache) error     { return nil }
