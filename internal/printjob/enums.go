package printjob

type Status int

const (
	StatusQueued Status = iota
	StatusSpooling
	StatusPrinting
	StatusPaused
	StatusPaperOut
	StatusUserInterventionRequired
	StatusBlocked
	StatusError
	StatusDeleting
	StatusDeleted
	StatusOffline
)

var statusNames = [...]string{
	StatusQueued:                   "Queued",
	StatusSpooling:                 "Spooling",
	StatusPrinting:                 "Printing",
	StatusPaused:                   "Paused",
	StatusPaperOut:                 "Paper Out",
	StatusUserInterventionRequired: "User Intervention Required",
	StatusBlocked:                  "Blocked",
	StatusError:                    "Error",
	StatusDeleting:                 "Deleting",
	StatusDeleted:                  "Deleted",
	StatusOffline:                  "Offline",
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	out := make([]Status, 0, len(statusNames))
	for s := range statusNames {
		out = append(out, Status(s))
	}
	return out
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

type ColorMode int

const (
	ColorUnknown ColorMode = iota
	ColorColor
	ColorMonochrome
)

func (c ColorMode) String() string {
	switch c {
	case ColorColor:
		return "Color"
	case ColorMonochrome:
		return "Monochrome"
	default:
		return "Unknown"
	}
}

type DuplexMode int

const (
	DuplexUnknown DuplexMode = iota
	DuplexSimplex
	DuplexVertical
	DuplexHorizontal
)

func (d DuplexMode) String() string {
	switch d {
	case DuplexSimplex:
		return "Simplex"
	case DuplexVertical:
		return "Duplex Vertical"
	case DuplexHorizontal:
		return "Duplex Horizontal"
	default:
		return "Unknown"
	}
}

type PaperSize int

const (
	PaperUnknown PaperSize = iota
	PaperLetter
	PaperLegal
	PaperA4
	PaperA3
	PaperA5
	PaperCustom
)

func (p PaperSize) String() string {
	switch p {
	case PaperLetter:
		return "Letter"
	case PaperLegal:
		return "Legal"
	case PaperA4:
		return "A4"
	case PaperA3:
		return "A3"
	case PaperA5:
		return "A5"
	case PaperCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}
