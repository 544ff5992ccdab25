// Package vm provides the Fusabi bytecode unit (Chunk), its wire codec,
// and a stack-based virtual machine for executing chunks.
//
// A Chunk is the fundamental unit of compiled code: a flat instruction
// stream, a typed constant pool, and a function table. Chunks can be
// serialized to the "FSBC" wire format for storage or transport; the
// serialized byte form is the only representation that crosses asset
// boundaries, so live interpreter state never leaks between owners.
//
// The VM is disposable: create one per execution with NewVM, call Execute,
// and discard it. No state is shared between VM instances, which makes
// concurrent execution of the same chunk by independent VMs safe.
package vm
