// Package urls provides centralized constants for the documentation URLs
// shown by the CLI.
//
// Usage:
//
//	import "github.com/muurk/adax/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.TroubleshootingGuide)
package urls
