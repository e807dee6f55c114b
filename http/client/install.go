package client

import (
	"net/http"
	"sync"
)

var (
	installMutex sync.Mutex
	installedRT  *installedTransport
)

// installedTransport remembers what Install replaced, so Uninstall
// can put the original transport back.
type installedTransport struct {
	original http.RoundTripper
	wrapped  http.RoundTripper
}

// Install wraps http.DefaultTransport with the monitoring transport,
// so every client relying on the default transport is covered without
// touching call sites. The operation is idempotent: a second call is
// a no op and reports false.
func Install(opts *TransportOptions) bool {
	installMutex.Lock()
	defer installMutex.Unlock()

	if installedRT != nil {
		return false
	}

	original := http.DefaultTransport
	rt := newTransport(original, opts)
	if rt == nil {
		return false
	}

	installedRT = &installedTransport{original: original, wrapped: rt}
	http.DefaultTransport = rt
	return true
}

// Uninstall restores the transport Install replaced. Reports false
// when nothing was installed. If something else replaced the default
// transport in between, it is left in place.
func Uninstall() bool {
	installMutex.Lock()
	defer installMutex.Unlock()

	if installedRT == nil {
		return false
	}
	if http.DefaultTransport == installedRT.wrapped {
		http.DefaultTransport = installedRT.original
	}
	installedRT = nil
	return true
}

// IsInstalled tells if the default transport is currently wrapped.
func IsInstalled() bool {
	installMutex.Lock()
	defer installMutex.Unlock()
	return installedRT != nil
}
