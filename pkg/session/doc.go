/*
Package session shares named workspaces between concurrent callers.

A Manager keeps one in-process Workspace per id, serializes access to it with
a reference-counted lock, and persists its snapshot to a ports.SnapshotStore
after every successful update. When several processes share the store, a
ports.DistributedLocker coordinates them; the Manager then reloads the
workspace from the store on every access, so the undo history only lives as
long as one call.
*/
package session
