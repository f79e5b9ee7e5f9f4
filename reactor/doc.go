// Package reactor — see reactor.go for the operations object. This file
// only documents the module-level contract.
//
// Concrete socket I/O, logging policy beyond what Options.Logger accepts,
// the surrounding process/CLI, and fallback (poll/select) demultiplexers
// are explicitly out of scope — see SPEC_FULL.md §5.
package reactor
