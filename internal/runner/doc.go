// Package runner sequences one full run as a small state machine: open the
// browser session, log in (delegating the CAPTCHA to the retry controller),
// navigate to the report screen, fetch each target period, and tear the
// session down on every exit path. Results are collected into an itemized
// Report that drives the process exit code.
package runner
