// Package domain contains the core business entities of the task service:
// tasks and their single-predecessor links, groups and memberships, users
// with their permissions, and generated time plans. It is independent of any
// storage or delivery mechanism.
package domain
