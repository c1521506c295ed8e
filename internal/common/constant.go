// Package common contains shared constants and sentinel errors used across
// usersync components.
package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key) carrying
// the admin bearer token.
const AuthorizationHeaderName = "authorization"

// CheckpointKey is the metadata key under which the last successful bulk
// reconciliation time is stored.
const CheckpointKey = "last_user_sync_time"
