package api

// ParameterInfo describes one plugin parameter. Index is the only
// identifier exposed to callers; it is the ordinal position in the
// plugin's parameter list and stays stable for the life of the
// instance. Min, Max and Default are in the plugin's native units.
type ParameterInfo struct {
	Index   int
	Name    string
	Unit    string
	Min     float32
	Max     float32
	Default float32

	// StepCount is the number of discrete steps for stepped parameters,
	// 0 for continuous ones.
	StepCount int32

	// ProgramList marks parameters the plugin flags as program/preset
	// selectors. Used by the preset-loading fallback chain.
	ProgramList bool
}

// PresetInfo describes one factory preset. Index is the caller-facing
// ordinal, stable only within this instance's session; Number is the
// architecture-specific handle used to re-select the preset.
type PresetInfo struct {
	Index  int
	Name   string
	Number int32
}

// GUISize is the preferred size of a plugin view in points.
type GUISize struct {
	Width  float32
	Height float32
}

// GUIView is a read-only accessor for a native plugin view. Creation is
// asynchronous and must happen on the platform's main thread; see
// Instance.OpenView.
type GUIView interface {
	// Handle returns the native view handle (NSView*, HWND, ...) as an
	// opaque pointer-sized value for embedding by the GUI collaborator.
	Handle() uintptr

	// PreferredSize reports the view's preferred size.
	PreferredSize() (GUISize, error)

	// Close destroys the view. Safe to call once.
	Close() error
}

// GUICallback delivers the result of an asynchronous view creation.
// Exactly one of view/err is non-nil.
type GUICallback func(view GUIView, err error)

// Instance is the normalized plugin instance contract satisfied by both
// architectures.
//
// Threading: an Instance is owned by one thread at a time. Process is
// driven by the audio thread; parameter access and MIDI submission may
// come from another thread but the caller must serialize all calls on
// the same instance. Initialize, Reset, state access, preset loading
// and Close may block on native queries and are unsuitable for the
// audio thread.
type Instance interface {
	// Descriptor returns the identity this instance was created from.
	Descriptor() Descriptor

	// Initialize negotiates the audio format and prepares the plugin for
	// processing. Idempotent: a second call after success returns nil
	// without renegotiating. On failure everything is rolled back and
	// the instance remains retryable.
	Initialize(sampleRate float64, maxBlockSize int) error

	IsInitialized() bool

	// Reset clears internal buffers and tails without touching parameter
	// values.
	Reset() error

	// Process runs one block. Buffers are planar float32, one slice per
	// channel, each with at least frames capacity; channel counts must
	// equal the negotiated counts. Real-time safe: no locks, no heap
	// allocation, no I/O.
	Process(inputs, outputs [][]float32, frames int) error

	// InputChannels and OutputChannels report the channel configuration
	// negotiated at Initialize. Zero before initialization.
	InputChannels() int
	OutputChannels() int

	// ParameterCount returns the number of exposed parameters, 0 before
	// initialization.
	ParameterCount() int

	// ParameterInfo describes the parameter at index in native units.
	ParameterInfo(index int) (ParameterInfo, error)

	// GetParameter returns the normalized [0,1] value of the parameter.
	GetParameter(index int) (float32, error)

	// SetParameter sets the normalized [0,1] value; out-of-range values
	// are clamped. Permitted while audio is processing, but may be
	// audible since it bypasses the plugin's own smoothing.
	SetParameter(index int, value float32) error

	// SendMIDI translates and queues a batch of events. The batch is
	// all-or-nothing: any invalid event rejects the whole call with no
	// events forwarded. An empty batch is a successful no-op.
	SendMIDI(events []MidiEvent) error

	// PresetCount returns the number of factory presets enumerated at
	// Initialize.
	PresetCount() int

	// PresetInfo describes the preset at index.
	PresetInfo(index int) (PresetInfo, error)

	// LoadPreset applies the preset at index, trying the direct native
	// API first and falling back to heuristic strategies. Returns
	// ErrPresetNotLoadable when no strategy works.
	LoadPreset(index int) error

	// GetState serializes the complete plugin state to an opaque blob.
	GetState() ([]byte, error)

	// SetState restores state from a blob produced by GetState.
	SetState(data []byte) error

	// OpenView asynchronously creates the plugin's native view and
	// delivers it via cb. Must be invoked from the platform main thread.
	// Plugins without a view report ErrGUIUnsupported.
	OpenView(cb GUICallback)

	// Close tears the instance down in strict reverse order of
	// acquisition and releases the native handle. Safe on a partially
	// constructed instance; calling any other method afterwards is
	// undefined.
	Close() error
}
