package source

import "strings"

// StatusFlag is a set of job status bits. A spooler may report several at once.
type StatusFlag uint32

const (
	StatusPaused StatusFlag = 1 << iota
	StatusError
	StatusDeleting
	StatusSpooling
	StatusPrinting
	StatusOffline
	StatusPaperOut
	StatusPrinted
	StatusDeleted
	StatusBlocked
	StatusUserIntervention
	StatusRestart
	StatusComplete
)

var statusFlagNames = []struct {
	flag StatusFlag
	name string
}{
	{StatusPaused, "paused"},
	{StatusError, "error"},
	{StatusDeleting, "deleting"},
	{StatusSpooling, "spooling"},
	{StatusPrinting, "printing"},
	{StatusOffline, "offline"},
	{StatusPaperOut, "paper_out"},
	{StatusPrinted, "printed"},
	{StatusDeleted, "deleted"},
	{StatusBlocked, "blocked"},
	{StatusUserIntervention, "user_intervention"},
	{StatusRestart, "restart"},
	{StatusComplete, "complete"},
}

// Has reports whether all bits of flag are set.
func (f StatusFlag) Has(flag StatusFlag) bool {
	return f&flag == flag
}

func (f StatusFlag) String() string {
	var names []string
	for _, n := range statusFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseStatusFlag returns the flag with the given name, as printed by String.
func ParseStatusFlag(name string) (StatusFlag, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range statusFlagNames {
		if n.name == name {
			return n.flag, true
		}
	}
	return 0, false
}

// SettingsField marks which DeviceSettings values are populated.
type SettingsField uint8

const (
	FieldColor SettingsField = 1 << iota
	FieldDuplex
	FieldPaperSize
)

// Device mode codes. The numbering follows the DEVMODE constants used by
// Windows spoolers; other sources translate into the same set.
const (
	ColorMonochrome = 1
	ColorColor      = 2

	DuplexSimplex    = 1
	DuplexVertical   = 2
	DuplexHorizontal = 3

	PaperLetter = 1
	PaperLegal  = 5
	PaperA3     = 8
	PaperA4     = 9
	PaperA5     = 11
)

// DeviceSettings carries the print settings a job was submitted with.
type DeviceSettings struct {
	Fields    SettingsField
	Color     int
	Duplex    int
	PaperSize int
}

// Has reports whether field is populated.
func (s *DeviceSettings) Has(field SettingsField) bool {
	return s != nil && s.Fields&field != 0
}
