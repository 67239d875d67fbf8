// Package route derives aggregation route keys from message metadata.
package route

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/message"
)

var (
	// sourceKeep filters the raw Source field down to safe characters
	// before it is split into db and table parts.
	sourceKeep = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	// tokenScrub collapses every run of characters outside the sanitized
	// alphabet into a single underscore.
	tokenScrub = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// Router resolves the (folder, sourceDb, table) route key for a message.
// Resolution is a pure function of envelope metadata; payload content
// never influences routing.
type Router struct {
	fallbackFolder string
}

// NewRouter creates a router with the folder used when a message carries
// no Destination.
func NewRouter(fallbackFolder string) *Router {
	return &Router{fallbackFolder: fallbackFolder}
}

// Resolve derives the route key for one message.
//
// The Source field is cleaned, then split on its first dot into db and
// table parts; without a dot both parts equal the whole cleaned Source.
// The folder comes from Destination, falling back to the configured
// default. All three components share one sanitization: lowercase with
// every run of characters outside [a-z0-9_-] replaced by one underscore.
//
// A key whose folder or table ends up empty is invalid routing; the
// message must be excluded from aggregation.
func (r *Router) Resolve(msg *message.RawMessage) (message.RouteKey, error) {
	source := sourceKeep.ReplaceAllString(strings.TrimSpace(msg.Source), "")

	dbPart, tablePart := source, source
	if idx := strings.Index(source, "."); idx >= 0 {
		dbPart, tablePart = source[:idx], source[idx+1:]
	}
	if dbPart == "" {
		dbPart = "unknown_db"
	}
	if tablePart == "" {
		tablePart = "unknown_table"
	}

	folderSource := strings.TrimSpace(msg.Destination)
	if folderSource == "" {
		folderSource = r.fallbackFolder
	}

	key := message.RouteKey{
		Folder:   Sanitize(folderSource),
		SourceDB: Sanitize(dbPart),
		Table:    Sanitize(tablePart),
	}
	if key.Folder == "" || key.Table == "" {
		return message.RouteKey{}, fmt.Errorf("%w: folder=%q table=%q from source=%q destination=%q",
			errors.ErrInvalidRouting, key.Folder, key.Table, msg.Source, msg.Destination)
	}
	return key, nil
}

// Sanitize lowercases a token and replaces every run of characters
// outside [a-z0-9_-] with a single underscore.
func Sanitize(name string) string {
	return tokenScrub.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}
