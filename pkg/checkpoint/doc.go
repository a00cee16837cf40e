// Package checkpoint provides functionality for saving and resuming crawl progress.
//
// The checkpoint system allows a crawl to resume after interruptions such as
// network failures, rate limits, or manual stops. It tracks:
//   - Last processed page/cursor position
//   - Collected item ids (to avoid duplicates)
//   - Overall progress statistics
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/mediacrawl/checkpoints/
//   - macOS: ~/Library/Application Support/mediacrawl/checkpoints/
//   - Windows: %APPDATA%/mediacrawl/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package checkpoint
