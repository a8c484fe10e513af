// Command validate provides a small CLI that validates board settings
// profiles (JSON files) in the ../configs directory. It checks:
//   - JSON structure, rejecting keys the server does not know
//   - Every value the server validates on load (positive limits, join_history <= chat_history_limit, ...)
//   - That the profile name matches its file name, which is how profiles are selected
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/collab-board/board/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateProfile loads and validates a single settings profile.
func validateProfile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	settings := config.Defaults()
	settings.Name = ""
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(settings); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := settings.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, splitErrors(err)...)
		return result
	}

	profileID := strings.TrimSuffix(result.File, ".json")
	if settings.Name != "" && settings.Name != profileID {
		result.Errors = append(result.Errors, fmt.Sprintf("⚠ Name %q differs from profile id %q", settings.Name, profileID))
	}

	// Add informational data
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", settings.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Seats per room: %d", settings.MaxUsers))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Chat: %d kept, %d sent on join", settings.ChatHistoryLimit, settings.JoinHistory))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Reaper: every %s, grace %s", settings.ReapInterval(), settings.IdleGrace()))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Cards: %gx%g", settings.CardWidth, settings.CardHeight))

	return result
}

// splitErrors flattens a joined validation error into one line per problem.
func splitErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, e.Error())
		}
		return lines
	}
	return []string{err.Error()}
}

// run validates every *.json profile in dir, printing a concise report. It
// returns false if any profile is invalid.
func run(dir string) bool {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		return false
	}
	if len(files) == 0 {
		fmt.Printf("No profiles found in %s\n", dir)
		return false
	}

	allValid := true
	for _, file := range files {
		result := validateProfile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All profiles are valid!")
	} else {
		fmt.Println("❌ Some profiles have errors")
	}
	return allValid
}

// main scans ../configs (or the directory given as the first argument) and
// exits with non-zero status if any profile is invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	if !run(configDir) {
		os.Exit(1)
	}
}
