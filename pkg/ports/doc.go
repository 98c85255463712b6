/*
Package ports defines the driven ports (interfaces) of the topology core.

These interfaces decouple the edit engine from the geometric kernel, the mesh
generators and the persistence backends.

# Key Interfaces

  - GeometryOracle: projects points onto the geometric model and answers boundary queries.
  - MeshGenerator: meshes a CoFace or a Block from its discretized boundary.
  - Smoother: relaxes the nodes of a surface mesh under geometric constraints.
  - SnapshotStore: persists topology snapshots by key.
  - DistributedLocker: provides distributed locking for concurrent workspace access.
*/
package ports
