// Package store persists session records. Implementations guard updates
// with an optimistic version check so two instances advancing the same
// session cannot clobber each other. Implementations satisfy
// session.SessionStore.
package store
