// Package internal contains the core implementation packages for loam.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the loam CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: Configuration management with validation
//   - errors: Structured error types with codes and source locations
//   - importmap: Browser import-map construction and URL resolution
//   - logging: Structured logging on top of log/slog
//   - options: Tagged-union option trees and recursive merging
//   - runner: Bounded-concurrency work driver for the build pipeline
//   - server: Development HTTP server with WebSocket live reload
//   - site: Site build pipeline: scanning, front matter, rendering
//   - upgrade: Cached upgrade checks against release metadata
//   - version: Build identity from ldflags and VCS metadata
//   - watcher: File system monitoring with debouncing
package internal
