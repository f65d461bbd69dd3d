// Package core holds the types shared between the ingestion pipeline, the
// database adapters and the run history store.
//
// Types live here so that pkg/adapter, pkg/dialect and the internal packages
// can exchange them without import cycles.
package core
