// Package defaults holds the default values shared by goExtract's packages and commands
package defaults

const (

	// ServiceName is used as namespace for metrics and as prefix of environment variables
	ServiceName = "goextract"

	// WindowSize denotes the default width of a time window in seconds
	WindowSize = 5.0

	// Policy denotes the default grouping policy
	Policy = "label_and_window"

	// Origin denotes the default mode for determining the trace start time
	Origin = "prescan"

	// OutputPath denotes the default location of the dataset
	OutputPath = "dataset_ml_features.csv"

	// OutputFormat denotes the default serialization of the dataset
	OutputFormat = "csv"

	// OutputHeader denotes the default header style of CSV output
	OutputHeader = "logical"

	// OutputColumns denotes the default set of feature columns
	OutputColumns = "standard"

	// InputFormat lets the trace format be derived from the file name
	InputFormat = "auto"

	// Stdout is the output path denoting standard output
	Stdout = "-"
)
