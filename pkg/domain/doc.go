// Package domain contains the core types of the pressflow engine: the
// article-creation workflow state, the fixed step sequence, the article
// row model and the sentinel errors shared by all adapters.
//
// Types here are plain data. Behavior (validation, navigation,
// persistence) lives in internal/runtime and the adapters; they all
// depend on this package, never the other way around.
package domain
