// Package auth decides which role a request carries.
//
// Roles are ordered None < Read < Full < Admin. KeyAuthorizer maps API keys,
// sent as "Authorization: Bearer <key>" or "X-API-Key: <key>", to roles via
// bcrypt hashes configured in API_KEYS. Requests without a key get the
// anonymous role.
//
// Middleware stores the Decision in the request context and Require guards
// individual handlers.
package auth
