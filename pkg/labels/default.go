package labels

// Monitored ports of the home Wi-Fi simulation, one application per port
var defaultEntries = []Entry{
	{Port: 9001, Label: 1, Name: "camera"},
	{Port: 9002, Label: 2, Name: "temperature sensor"},
	{Port: 9003, Label: 3, Name: "voice assistant"},
	{Port: 9004, Label: 4, Name: "file download"},
	{Port: 9005, Label: 5, Name: "voip uplink"},
	{Port: 9006, Label: 6, Name: "voip downlink"},
	{Port: 9007, Label: 7, Name: "home automation"},
	{Port: 9008, Label: 8, Name: "music streaming"},
	{Port: 9009, Label: 9, Name: "doorbell"},
	{Port: 9010, Label: 10, Name: "firmware update"},
}

var defaultTable = MustNew(defaultEntries...)

// Default returns the label table of the home simulation scenario
func Default() *Table {
	return defaultTable
}
