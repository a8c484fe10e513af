// Package config provides board settings management for the collaborative board.
//
// The config package handles:
//   - Loading named settings profiles from JSON files
//   - Filling omitted fields with built-in defaults
//   - Settings validation
//   - Profile discovery and listing
//
// Profile Format:
//
// Profiles are stored as JSON files in the configs directory. Each profile
// may define:
//   - Room capacity and chat history limits
//   - Idle-room reaper interval and grace window (seconds)
//   - Default card size and the random placement rectangle
//   - Public room display name and generated room ID length
//   - Per-connection send buffer and maximum inbound message size
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific profile
//	settings, err := manager.LoadProfile("classroom")
//
//	// Get the default profile ("default.json" or built-in defaults)
//	settings = manager.GetDefault()
package config
