package tools

// NewTable builds the static name -> Descriptor table for all eight
// tools, per spec.md §4.5 and §9's "no runtime reflection" design note.
// Called once at startup; the returned Table is read-only thereafter.
func NewTable(deps Deps) Table {
	descriptors := []Descriptor{
		newSearchPackagesDescriptor(deps),
		newLatestVersionDescriptor(deps),
		newCheckCompatibilityDescriptor(deps),
		newListVersionsDescriptor(deps),
		newPackageDetailsDescriptor(deps),
		newPublisherPackagesDescriptor(deps),
		newScoreInsightsDescriptor(deps),
		newDependencyInspectorDescriptor(deps),
	}

	table := make(Table, len(descriptors))
	for _, d := range descriptors {
		table[d.Name] = d
	}
	return table
}
