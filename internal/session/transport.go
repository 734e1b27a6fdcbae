package session

import (
	"context"
	"time"
)

// LogOnResult is the transport's verdict on a login attempt.
type LogOnResult string

// LogOnOK is the only result that yields a usable session.
const LogOnOK LogOnResult = "OK"

// Event is a callback delivered on the transport's event queue. Concrete
// types below are the only ones the manager reacts to; anything else is
// ignored.
type Event interface{}

// ConnectedEvent reports that the transport established its connection.
type ConnectedEvent struct{}

// DisconnectedEvent reports that the transport lost its connection.
type DisconnectedEvent struct{}

// LoggedOnEvent reports the outcome of an anonymous login attempt.
type LoggedOnEvent struct {
	Result LogOnResult
}

// LoggedOffEvent reports that the backend logged the identity off.
type LoggedOffEvent struct {
	Result string
}

// PackageInfo is the per-package metadata block of a product info result.
// Extended carries the free-form key/value section where validity windows
// live ("starttime", "expirytime", epoch seconds as strings).
type PackageInfo struct {
	ID       uint32
	Extended map[string]string
}

// ProductInfo is one result of a product info request. A request may return
// zero or more results, and a result may not contain the requested package.
type ProductInfo struct {
	Packages map[uint32]PackageInfo
}

// Transport is the stateful connection to the storefront's backend service.
// Implementations queue connection and login callbacks; the manager drains
// them via NextEvent on its pump goroutine.
type Transport interface {
	// Connect opens the underlying connection. Outcomes are reported
	// through ConnectedEvent / DisconnectedEvent.
	Connect() error
	// Disconnect closes the underlying connection.
	Disconnect()
	// IsConnected reports the current connection state.
	IsConnected() bool
	// LogOnAnonymous issues an anonymous login; the outcome arrives as a
	// LoggedOnEvent.
	LogOnAnonymous()
	// ProductInfo requests package metadata for (appID, packageID). Only
	// valid while logged on.
	ProductInfo(ctx context.Context, appID, packageID uint32) ([]ProductInfo, error)
	// NextEvent waits up to timeout for the next queued event; the second
	// return value is false when the wait timed out.
	NextEvent(timeout time.Duration) (Event, bool)
}
