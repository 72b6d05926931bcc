package dynamo

// Attribute names of the node table.
const (
	attrParent    = "parent"
	attrKey       = "key"
	attrDoc       = "doc"
	attrDir       = "dir"
	attrUpdatedAt = "updated_at"
)

// rootParent is the partition holding the top-level keys.
const rootParent = "/"
