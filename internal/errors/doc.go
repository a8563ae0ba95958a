// Package errors provides the structured error type used across the
// gradbook navigation core.
//
// Every error carries a Category that maps one-to-one onto the routing
// error taxonomy (not found, forbidden, locked, transport, and so on) plus
// optional dispatch context (entity id, route, actor id) for logging.
// Category predicates such as IsNotFound work through wrapped chains via
// errors.As.
package errors
