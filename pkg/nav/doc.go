// Package nav dispatches fragment-change events to views.
//
// Two routers share the same primitives. AuthRouter serves routes that
// require a signed-in actor (dashboard, create, edit) and owns the edit
// session lifecycle through the subscription coordinator. PublicRouter
// serves routes reachable without authentication (public view, upload
// portal, direct upload links) and drives the password gate for protected
// pages.
//
// The rendering layer and the modal/notification layer are collaborators
// behind interfaces: the routers resolve data and invoke them, never
// awaiting a result. Every dispatch is wrapped in a recovery boundary so a
// failure lands on a safe default route instead of a stuck loading state.
package nav
