// Package models defines the core domain entities: deals and enrichment keys.
package models

import (
	"errors"
	"time"
)

// Deal represents a fully discounted store offer. Start and End carry the
// authoritative validity window; a zero Start means the window's beginning is
// unknown, a zero End means no expiry was found.
type Deal struct {
	AppID    uint32    `json:"app_id"`
	Title    string    `json:"title"`
	Image    string    `json:"image"`
	Link     string    `json:"link"`
	Discount int       `json:"discount"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
}

// EnrichmentKey identifies one package-level lookup for the app that produced
// it. A single app may declare many packages; each is an independent key.
type EnrichmentKey struct {
	AppID     uint32
	PackageID uint32
}

// Validate checks the constraints a deal must satisfy before it is emitted.
// The scanTime argument anchors the expiry check when no start time is known.
func (d *Deal) Validate(scanTime time.Time, requireExpiry bool) error {
	if d.AppID == 0 {
		return errors.New("deal app ID must not be zero")
	}
	if d.Title == "" {
		return errors.New("deal title must not be empty")
	}
	if d.Link == "" {
		return errors.New("deal link must not be empty")
	}
	if d.Discount != 100 {
		return errors.New("deal discount must be 100")
	}
	if d.End.IsZero() {
		if requireExpiry {
			return errors.New("deal end time must be set")
		}
		return nil
	}
	if !d.Start.IsZero() {
		if !d.End.After(d.Start) {
			return errors.New("deal end time must be after start time")
		}
		return nil
	}
	if !d.End.After(scanTime) {
		return errors.New("deal end time must be after scan time")
	}
	return nil
}
