// Package offline keeps a site usable without a network.
//
// A Controller is an http.RoundTripper bound to one cache generation. It
// precaches a manifest on Install, deletes every other generation on
// Activate and answers GET requests network-first: live responses are copied
// into the cache while the caller reads them, and when the network fails the
// cached copy (or, for HTML navigations, the fallback page) is served instead.
//
// A Container holds the active Controller and replaces it as soon as a newer
// one installs successfully.
package offline
