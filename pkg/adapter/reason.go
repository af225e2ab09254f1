package adapter

// Reason tells why the primary source didn't give a frame.
type Reason int

const (
	ReasonNone        Reason = iota // the primary frame was used
	ReasonAbsent                    // the builder returned nothing
	ReasonBuildError                // the builder failed
	ReasonPanic                     // the builder or a conversion step panicked
	ReasonTimeout                   // the builder didn't finish in time
	ReasonUnsupported               // the builder returned an unknown renderable
	ReasonRasterize                 // the chart couldn't be rasterized
	ReasonNormalize                 // the image couldn't be converted
	ReasonShape                     // the converted frame has a wrong size
	ReasonBusy                      // the previous builder call hasn't returned yet
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonAbsent:
		return "absent"
	case ReasonBuildError:
		return "build_error"
	case ReasonPanic:
		return "panic"
	case ReasonTimeout:
		return "timeout"
	case ReasonUnsupported:
		return "unsupported"
	case ReasonRasterize:
		return "rasterize"
	case ReasonNormalize:
		return "normalize"
	case ReasonShape:
		return "shape"
	case ReasonBusy:
		return "busy"
	}
	return "unknown"
}

// Origin is the frame source that won.
type Origin int

const (
	OriginPrimary Origin = iota
	OriginFallback
)

func (o Origin) String() string {
	if o == OriginPrimary {
		return "primary"
	}
	return "fallback"
}
