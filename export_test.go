package goform

// SwapDefaultTransport installs t (nil included) as the process-wide
// transport and returns the previous one.
func SwapDefaultTransport(t Transport) Transport {
	transportMu.Lock()
	prev := defaultTransport
	defaultTransport = t
	transportMu.Unlock()
	return prev
}
