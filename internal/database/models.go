package database

// Dataset is the catalogue entry of a stored dataset.
type Dataset struct {
	ID        string
	Name      string
	Source    string  // csv|xlsx
	Origin    *string // file path or "upload"
	Rows      int
	IsDefault bool
	CreatedAt *string
}

// Stats holds aggregate store statistics.
type Stats struct {
	Datasets     int
	Observations int
	Months       int
	DefaultName  string
}
