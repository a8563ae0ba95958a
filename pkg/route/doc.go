// Package route parses URL fragments into structured routes and generates
// fragments back from them.
//
// The codec is pure: no I/O, no process state. Every fragment resolves to
// one of seven route kinds; empty, absent, or unrecognized fragments
// resolve to the dashboard by design rather than erroring.
//
// Fragment grammar:
//
//	#/dashboard
//	#/new
//	#/login
//	#/edit/<id-or-slug>
//	#/view/<id-or-slug>
//	#/upload/<id-or-slug>
//	#/upload/<id-or-slug>/<linkToken>
package route
