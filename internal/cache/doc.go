// Package cache defines the disk-backed store responsible for translating
// asset requests into StoragePath/<cache-name>/<path> files. Each cache name
// maps to one directory so a whole cache version can be enumerated and pruned
// as a unit. The store exposes read/write primitives with safe semantics
// (temp file + rename) plus a cross-cache Match used by the fetch path, and
// surfaces file info (size, modtime) for higher layers. Lifecycle and proxy
// handlers depend on this package instead of duplicating filesystem logic.
package cache
