// Package client is the HTTP client for the MegaVault API used by the CLI.
//
// A Client keeps the session token returned by Login and sends it as a
// bearer token on every later call. Failed calls return an *APIError that
// matches ErrUnauthorized, ErrForbidden or ErrNotFound with errors.Is;
// transport failures wrap ErrUnavailable.
package client
