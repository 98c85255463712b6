/*
Package domain contains the core vocabulary of the topoedit engine.

It defines the identifiers and kinds of topological entities, the change
transitions recorded by a command journal, the meshing property set attached to
edges and blocks, and the coded errors shared by every layer. The package is
kept free of I/O and persistence so adapters and the runtime can depend on it
without cycles.

# Key Types

  - ID and Kind: process-unique entity identity and the closed set of entity variants.
  - Transition: CREATED, DELETED, DISPLAY_MODIFIED, MESH_MODIFIED or NONE.
  - EdgeMeshing / BlockMeshing: discretization policy for CoEdges and Blocks.
  - Error: coded error carrying the structural, external or invariant class.
*/
package domain
