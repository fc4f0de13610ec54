package cli

// Display defaults for tabular output.
const (
	// MaxDescriptionLength is the maximum length of a description column.
	MaxDescriptionLength = 50
	// MaxSearchDescriptionLength is the description cap in search results.
	MaxSearchDescriptionLength = 40
	// MaxVersionLength is the version column width.
	MaxVersionLength = 15
)
