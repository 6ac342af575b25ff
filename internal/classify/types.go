package classify

// Match sources, recorded so operators can see which text produced a category.
const (
	SourceFilename = "filename"
	SourceContent  = "content"
	SourceFallback = "fallback"
)

// CategoryMatch is the outcome of classifying one attachment. A nil
// CategoryMatch means no allowed category cleared the threshold and no
// fallback category was configured.
type CategoryMatch struct {
	Category   string
	Confidence float64
	Pattern    string
	Source     string
}
