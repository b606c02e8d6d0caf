// Package generation defines the boundary between time-plan jobs and the
// language model that writes the plans. It holds the Generator interface,
// the errors implementations report, and the provider-neutral view of the
// tasks a prompt is rendered from.
package generation
