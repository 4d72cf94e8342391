/*
Package ports defines the driven ports (interfaces) of the session layer.

These interfaces decouple session orchestration from storage and coordination backends.

# Key Interfaces

  - SessionStore: persists and loads sessions.
  - DistributedLocker: serialises access to a session across processes.

RunSessionStoreContract checks that a SessionStore behaves as the rest of the module expects.
*/
package ports
