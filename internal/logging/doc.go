// Package logging provides the leveled, printf-style logger used across the
// service. Output is produced by a zap console core.
//
// Levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions (lock timeouts, probe failures)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the process
//
// The level is read once from DEBUG or LOG_LEVEL and can be changed at
// runtime with SetLevel.
package logging
