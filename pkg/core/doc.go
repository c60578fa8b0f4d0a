// Package core defines the shared language of the leapsite system.
//
// This package contains:
//   - Template data (Record)
//   - Build state entities (Build, Output) and the Store interface
//   - Shared configuration types (PageConfig, ServeConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
