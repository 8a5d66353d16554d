// Package core defines the shared language of the leapclean system.
//
// This package contains:
//   - Domain entities (OrderRecord, CleanedOrderRecord, BatchRun)
//   - Service interfaces (Adapter, Store)
//   - Engine configuration (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
