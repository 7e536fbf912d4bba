// Package browser owns the shared headless browser process.
//
// A Manager launches the process lazily through a Launcher, hands the live
// Browser to callers, and replaces it when the process disconnects or when
// it has been running longer than its maximum lifetime. Callers must not
// cache the Browser: each request calls EnsureReady and opens its own Tab.
//
// The rod adapter in this package implements Launcher, Browser and Tab over
// the Chrome DevTools Protocol. Tests use in-memory fakes of the same
// interfaces so that nothing here requires a real browser.
package browser
