package schema

// Custom string types for type safety.
type (
	// Category represents the kind of collaboration event.
	Category string

	// Granularity represents the fixed time span covered by one bucket.
	Granularity string

	// OutputMode represents the format of the output.
	OutputMode string

	// SourceKind represents where raw events are fetched from.
	SourceKind string

	// DatabaseBackend represents the database backend for caching and analysis tracking.
	DatabaseBackend string
)

// All categories supported.
const (
	CommitCategory       Category = "commit"
	MergeRequestCategory Category = "merge_request"
)

// All bucket granularities supported.
const (
	HourGranularity  Granularity = "hour"
	DayGranularity   Granularity = "day" // default
	WeekGranularity  Granularity = "week"
	MonthGranularity Granularity = "month"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
	HTMLOut    OutputMode = "html"
)

// All event sources supported.
const (
	GitLabSource SourceKind = "gitlab" // default
	GitSource    SourceKind = "git"
	FileSource   SourceKind = "file"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// DefaultWeight is applied to any category without an explicit weight.
const DefaultWeight = 1.0

// AllCategories is the ordered list of known categories.
// The position of a category in this list is its ordinal for tie-breaking.
var AllCategories = []Category{CommitCategory, MergeRequestCategory}

// ValidCategories lists all valid categories.
var ValidCategories = map[Category]struct{}{
	CommitCategory:       {},
	MergeRequestCategory: {},
}

// ValidGranularities lists all valid bucket granularities.
var ValidGranularities = map[Granularity]struct{}{
	HourGranularity:  {},
	DayGranularity:   {},
	WeekGranularity:  {},
	MonthGranularity: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
	HTMLOut:    {},
}

// ValidSourceKinds lists all valid event sources.
var ValidSourceKinds = map[SourceKind]struct{}{
	GitLabSource: {},
	GitSource:    {},
	FileSource:   {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Ordinal returns the position of the category in AllCategories, or -1 if unknown.
func (c Category) Ordinal() int {
	for i, known := range AllCategories {
		if known == c {
			return i
		}
	}
	return -1
}

// IsKnown reports whether the category is one of AllCategories.
func (c Category) IsKnown() bool {
	_, ok := ValidCategories[c]
	return ok
}

// DisplayName returns the human label used in headers and charts.
func (c Category) DisplayName() string {
	switch c {
	case CommitCategory:
		return "Commits"
	case MergeRequestCategory:
		return "Merge Requests"
	default:
		return string(c)
	}
}

// ParseCategory resolves user and payload spellings of a category.
// It accepts the canonical value plus common aliases such as "mr" or "pull_request".
func ParseCategory(s string) (Category, bool) {
	switch normalizeKey(s) {
	case "commit", "commits":
		return CommitCategory, true
	case "merge_request", "merge_requests", "mergerequest", "mr", "mrs", "pull_request", "pr":
		return MergeRequestCategory, true
	default:
		return Category(s), false
	}
}

// ParseGranularity resolves a granularity spelling such as "day" or "daily".
// Empty input resolves to the daily default.
func ParseGranularity(s string) (Granularity, bool) {
	switch normalizeKey(s) {
	case "":
		return DayGranularity, true
	case "hour", "hourly", "h":
		return HourGranularity, true
	case "day", "daily", "d":
		return DayGranularity, true
	case "week", "weekly", "w":
		return WeekGranularity, true
	case "month", "monthly", "m":
		return MonthGranularity, true
	default:
		return Granularity(s), false
	}
}
