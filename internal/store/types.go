package store

// Collection identifies one entity collection in the backing store.
type Collection string

const (
	Customers    Collection = "customers"
	Assets       Collection = "assets"
	Transactions Collection = "transactions"
	Settings     Collection = "settings"
)

// Changes is the set of collections touched by one committed write.
type Changes map[Collection]struct{}

// Has reports whether the change set touches the given collection.
func (c Changes) Has(col Collection) bool {
	_, ok := c[col]
	return ok
}

func (c Changes) add(col Collection) {
	c[col] = struct{}{}
}

func (c Changes) merge(other Changes) {
	for col := range other {
		c[col] = struct{}{}
	}
}
