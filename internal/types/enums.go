package types

// Collection names the bucket an entity is classified into.
type Collection string

const (
	CollectionNone         Collection = ""
	CollectionChains       Collection = "chains"
	CollectionServices     Collection = "services"
	CollectionFilters      Collection = "filters"
	CollectionLoaders      Collection = "loaders"
	CollectionConditions   Collection = "conditions"
	CollectionApplications Collection = "applications"
)

// Outcome is the tag of a factory construction result.
type Outcome int

const (
	// OutcomePlainValue keeps the mapping as plain configuration data.
	OutcomePlainValue Outcome = iota
	// OutcomeConstructed carries a constructed entity.
	OutcomeConstructed
	// OutcomeNotApplicable declines; matching continues with the next factory.
	OutcomeNotApplicable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConstructed:
		return "constructed"
	case OutcomeNotApplicable:
		return "not-applicable"
	default:
		return "plain-value"
	}
}

// SymbolKind tells the entity factory how a named constructor is invoked.
type SymbolKind string

const (
	SymbolEntity      SymbolKind = "entity"
	SymbolChain       SymbolKind = "chain"
	SymbolApplication SymbolKind = "application"
)
