// Package verify implements both ends of the password-verification
// endpoint: an HTTP client the password gate calls with a bounded timeout,
// and the chi handler the server mounts to answer it.
//
// The wire contract is a single POST:
//
//	{"action": "verify", "entityId": "...", "candidatePassword": "..."}
//
// answered with:
//
//	{"isValid": true|false}
//
// A call exceeding its bound is a transport failure, never a wrong
// password.
package verify
