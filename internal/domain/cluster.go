package domain

// Cluster is a set of top holders transitively connected through funding
// edges within the configured hop and time bounds. Clusters partition the
// top-holder set for one analysis run; singletons are not reported.
type Cluster struct {
	Members    []string // top-holder addresses, sorted ASC
	TokensHeld float64  // combined balance of members
	Funder     string   // shared funding ancestor, empty if members funded each other
}
