package database

// Run is one recorded pipeline execution.
type Run struct {
	ID         int64
	StartedAt  string
	FinishedAt *string
	Succeeded  int
	Failed     int
	Skipped    int
}

// RunUnit is the outcome of one stage for one country or (country, sector).
type RunUnit struct {
	Position int
	Country  string
	Sector   *string
	Stage    string
	Status   string
	Summary  *string
	Error    *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Runs        int
	RecordSets  int
	Records     int
	Curations   int
	FailedUnits int
}
