// Package memory provides the neural memory system: a pattern store that
// remembers how past generation tasks were solved.
//
// Patterns are winning (or instructively failed) generation attempts.
// Memories are namespaced by OwnerID for multi-tenant use.
//
// Architecture:
//   - Store: vector storage backend (chromem for volatile local use,
//     badger for persistence, production backends are user-provided)
//   - Embedder: text-to-vector conversion (ONNX local model, mock for tests)
//   - Manager: orchestrates retrieval, recording, and decay weighting
//
// Integration with the apex optimizer:
//   - RETRIEVE phase: relevant patterns are loaded before the first
//     generation round and injected into the prompt as guidance
//   - RECORD phase: instructive attempts are stored after the run completes
package memory
