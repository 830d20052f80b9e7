// Package common contains shared constants and sentinel errors used across
// usersvc components.
package common

// AccessTokenHeaderName is the HTTP header and gRPC metadata key used to carry
// the bearer token on inbound requests.
const AccessTokenHeaderName = "authorization"

// BearerScheme is the only authorization scheme accepted in AccessTokenHeaderName.
const BearerScheme = "Bearer"
