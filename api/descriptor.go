package api

import "fmt"

// Architecture identifies one of the two supported native plugin ABI
// families.
type Architecture uint8

const (
	VST3 Architecture = iota + 1
	AudioUnit
)

func (a Architecture) String() string {
	switch a {
	case VST3:
		return "vst3"
	case AudioUnit:
		return "audiounit"
	default:
		return "unknown"
	}
}

// Category is a coarse, architecture-independent plugin classification.
type Category uint8

const (
	CategoryEffect Category = iota
	CategoryInstrument
	CategoryMixer
	CategoryAnalyzer
	CategorySpatial
	CategoryFormatConverter
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryEffect:
		return "Effect"
	case CategoryInstrument:
		return "Instrument"
	case CategoryMixer:
		return "Mixer"
	case CategoryAnalyzer:
		return "Analyzer"
	case CategorySpatial:
		return "Spatial"
	case CategoryFormatConverter:
		return "FormatConverter"
	default:
		return "Other"
	}
}

// Descriptor is the architecture-independent identity of a discovered
// plugin. It is produced by a Scanner and immutable once returned; the
// adapter consumes only UniqueID (plus Path for VST3) to construct an
// instance, everything else is display metadata.
type Descriptor struct {
	Name         string
	Manufacturer string
	Version      uint32
	Category     Category

	// SubCategory carries the architecture's own classification string
	// when one exists (e.g. "Fx|Reverb" for VST3). May be empty.
	SubCategory string

	// Path is the on-disk bundle location. For AudioUnit plugins the
	// component is resolved through the system registry and Path is
	// informational only.
	Path string

	// UniqueID is the opaque identifier used to instantiate the plugin.
	// Its format differs per architecture (hex UID for VST3, a
	// type-subtype-manufacturer triple for AudioUnit) but it is always
	// treated as an opaque string.
	UniqueID string

	Arch Architecture
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s by %s (v%d) [%s]", d.Name, d.Manufacturer, d.Version, d.Category)
}

// Scanner is the discovery collaborator boundary. Implementations walk
// the filesystem or system registry; the adapter core only consumes the
// descriptors they produce.
type Scanner interface {
	// Scan enumerates plugins in the default system locations.
	Scan() ([]Descriptor, error)

	// ScanPath enumerates plugins under a specific directory.
	ScanPath(dir string) ([]Descriptor, error)
}
