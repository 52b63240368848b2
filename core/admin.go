package core

// Admin command names understood by transports. Anything outside this set is
// reported as unsupported.
const (
	AdminCreateCollection      = "create_collection"
	AdminDropCollection        = "drop_collection"
	AdminCreateCollectionIndex = "create_collection_index"
	AdminDropCollectionIndex   = "drop_collection_index"
	AdminListObjects           = "list_objects"
)

// AdminNamespace is the namespace catalog handles issue admin commands under.
const AdminNamespace = "mysqlx"

// ObjectArgs addresses one database object for the create and drop collection
// commands.
type ObjectArgs struct {
	Schema string
	Name   string
}

// DropIndexArgs addresses a collection index for the drop-index command.
type DropIndexArgs struct {
	Schema     string
	Collection string
	Name       string
}

// ListObjectsArgs selects the objects reported by the list-objects command.
// An empty pattern matches every object in the schema.
type ListObjectsArgs struct {
	Schema  string
	Pattern string
}

// Object kinds reported by the list-objects command.
const (
	ObjectCollection = "COLLECTION"
	ObjectTable      = "TABLE"
	ObjectView       = "VIEW"
)
