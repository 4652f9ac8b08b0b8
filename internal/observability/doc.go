// Package observability derives health signals from the workspace: metrics
// over the audit trail for the dashboard and status command, alert
// conditions over pending items and recent errors, and the Slack notifier
// watchers use when a surface needs a human.
package observability
