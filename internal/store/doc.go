// Package store defines the persistence interfaces of the task service:
// tasks, groups and memberships, users, and time plans. Implementations live
// in internal/platform/postgres. Every store can be bound to a transaction
// with WithTx so that guarded check-then-mutate sequences run atomically
// through RunInTransaction.
package store
