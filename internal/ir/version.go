package ir

// EngineVersion identifies the matching engine build. Recorded in snapshot
// commits so a restored log can be traced back to the engine that wrote it.
const EngineVersion = "0.3.0"

// SnapshotVersion is the snapshot schema generation. Bump when the commit
// row format changes incompatibly.
const SnapshotVersion = 1
