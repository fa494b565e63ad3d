package sasl

// Observer receives accounting events from active layers. Implementations
// must not block; they run on the connection's I/O path.
type Observer interface {
	// LayerInstalled is called once a layer is attached.
	LayerInstalled(ssf int)
	// LayerClosed is called once a layer is torn down.
	LayerClosed(ssf int)
	// Encoded reports one successful Encode call.
	Encoded(plain, encoded int)
	// Decoded reports one successful Decode call.
	Decoded(encoded, plain int)
	// Failed reports a fatal layer error for op ("encode", "decode", "write").
	Failed(op string)
}

type nopObserver struct{}

func (nopObserver) LayerInstalled(int) {}
func (nopObserver) LayerClosed(int)    {}
func (nopObserver) Encoded(int, int)   {}
func (nopObserver) Decoded(int, int)   {}
func (nopObserver) Failed(string)      {}

// Option configures Install.
type Option func(*Layer)

// WithObserver reports the layer's activity to o.
func WithObserver(o Observer) Option {
	return func(l *Layer) {
		if o != nil {
			l.observer = o
		}
	}
}
