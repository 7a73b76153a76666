package aggregates

// TxBehavior states whether a backend joins ambient unit-of-work transactions.
type TxBehavior string

const (
	// TxEnabled means writes run inside store transactions and a batch can be
	// committed atomically.
	TxEnabled TxBehavior = "enabled"
	// TxDisabled means each aggregate write is atomic on its own and nothing
	// spans aggregates.
	TxDisabled TxBehavior = "disabled"
)

// Contract describes the persistence guarantees a repository offers.
type Contract struct {
	Name       string
	Backend    string
	TxBehavior TxBehavior
	Notes      string
}

// Aggregate is the common marker for repositories that publish a contract.
type Aggregate interface {
	Contract() Contract
}

// SupportsBatchAtomicity reports whether InsertMany commits all-or-nothing.
func (c Contract) SupportsBatchAtomicity() bool {
	return c.TxBehavior == TxEnabled
}
