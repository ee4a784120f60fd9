/*
Package ports defines the driven ports (interfaces) of carpintaria.

These interfaces decouple the cores from external implementations, allowing
the dialogue engine and the offline cache controller to work with various
storage backends and graph sources.

# Key Interfaces

  - CacheStore: generation-scoped response storage for the cache controller.
  - GraphLoader: loads conversation node definitions (files, memory).
  - StateStore: persists conversation state for stateless hosts.
  - DistributedLocker: coordinates concurrent access to a session across replicas.
  - ActionDispatcher: executes host side-effects (open window, navigate).
*/
package ports
