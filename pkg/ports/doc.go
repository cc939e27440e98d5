// Package ports defines the interfaces between the pressflow engine and
// its infrastructure: session persistence, the article row store, the
// title cache, object storage and distributed locking.
//
// Adapters live under internal/adapters; contract test suites for each
// interface are exported here so every adapter proves the same behavior.
package ports
