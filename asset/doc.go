// Package asset provides handle-indexed storage for shader artifacts and
// pipeline descriptors.
//
// Assets live in a slot arena addressed by generational handles. A [Handle]
// is a small comparable value: copying it never duplicates the asset, and it
// can be used directly as a map key. Removing an asset bumps the generation
// of its slot, so every outstanding handle to the removed asset becomes stale
// even after the slot is reused.
//
// # Events
//
// [Assets] records Created, Modified and Removed events. The owner of the
// storage drains them once per frame with [Assets.DrainEvents]; the pipeline
// compiler uses Modified shader events to drive hot reload.
//
// # Thread Safety
//
// Assets is not safe for concurrent use. It is meant to be mutated from a
// single preparation stage.
package asset
