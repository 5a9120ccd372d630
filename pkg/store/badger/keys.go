package badger

// Database Key Namespace Design
// =============================
//
// BadgerDB is a key-value store, so different record types live under
// prefixed keys. Entries are keyed by their normalized absolute path, which
// keeps handles human-readable and makes point lookups O(1).
//
// Data Type        Prefix  Key Format              Value
// -----------------------------------------------------------------
// Entry metadata   "e:"    e:<path>                entryRecord (JSON)
// File content     "d:"    d:<path>                raw bytes
// Children index   "c:"    c:<parentPath>\x00<name>  nil
// Users            "u:"    u:<username>            userRecord (JSON)
//
// The children index is denormalized (one key per child) so directory
// listings are a single range scan over "c:<parentPath>\x00". The \x00
// separator cannot appear in a path component, so child names never
// collide with deeper descendants.
//
// Renaming a directory rewrites every descendant key; rename cost is
// proportional to subtree size, which matches the interactive workload this
// store serves.

const (
	entryPrefix   = "e:"
	contentPrefix = "d:"
	childPrefix   = "c:"
	userPrefix    = "u:"

	childSep = "\x00"
)

func entryKey(path string) []byte {
	return []byte(entryPrefix + path)
}

func contentKey(path string) []byte {
	return []byte(contentPrefix + path)
}

func childKey(parent, name string) []byte {
	return []byte(childPrefix + parent + childSep + name)
}

func childScanPrefix(parent string) []byte {
	return []byte(childPrefix + parent + childSep)
}

func userKey(username string) []byte {
	return []byte(userPrefix + username)
}
