// ABOUTME: Embeds the chat page template into the binary
// ABOUTME: Provides templateFS for parsing at server construction

package webchat

import "embed"

//go:embed templates/*.html
var templateFS embed.FS
