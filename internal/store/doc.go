// Package store provides the disqus.Store implementations used by disqusctl.
//
// FileStore keeps one JSON file per key under the XDG state directory and is
// the default. PebbleStore and RedisStore are selected through Open for
// shared or embedded deployments. All of them return disqus.ErrNotFound for
// absent keys and treat deleting an absent key as success.
package store
