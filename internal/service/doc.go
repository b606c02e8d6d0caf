// Package service contains the application use cases: publishing and
// editing tasks, staffing their groups, finishing work, managing users and
// requesting time plans.
//
// Services authorize the acting user, validate input through the domain
// package and coordinate stores inside transactions. Every mutation that the
// dependency-consistency guard protects runs its predicate and the write in
// the same transaction, after locking the task row, so concurrent requests
// cannot both pass a check.
//
// Services depend on the store interfaces only; the postgres implementations
// are injected by cmd/server.
package service
