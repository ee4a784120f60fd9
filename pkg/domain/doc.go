/*
Package domain contains the core domain models of carpintaria.

It defines the entities of both state machines: the conversation graph and
transcript driven by the dialogue engine, and the manifest, generations and
entries managed by the offline cache controller. This package is kept pure and
free of I/O or persistence concerns.

# Key Entities

  - Node, Option, Action: the static conversation graph. Action is a closed
    variant (Next, OpenLink, Navigate, OpenMessaging).
  - ConversationState: the runtime snapshot of one widget (current node,
    visibility, transcript).
  - ActionRequest: a side-effect the host must perform (open a window, navigate).
  - Manifest, CacheEntry, ControllerState: offline cache lifecycle.
*/
package domain
