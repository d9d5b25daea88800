// Package core defines the shared language of the frameset system.
//
// This package contains:
//   - Domain entities (EntitySet, Entity, Variable, Relationship, Table)
//   - Manifest description types (Manifest, EntityDescription, LoadingInfo)
//   - The polymorphic TypeField encoding shared by readers and writers
//
// The Golden Rule: pkg/core imports ONLY arrow, yaml and stdlib.
// All other packages depend on core, not the reverse.
package core
