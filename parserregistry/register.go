// Package parserregistry provides parser registration for the extraction
// pipeline. Parsers are registered explicitly here, not via init side
// effects, so a binary states exactly which parsers it ships.
package parserregistry

import (
	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/parsers"
	"github.com/5l1v3r1/plaso/parsers/filestat"
	"github.com/5l1v3r1/plaso/parsers/syslog"
)

// Register registers the bundled parsers:
//
//   - filestat: file system metadata timestamps, applies to every entry
//   - syslog: classic BSD syslog text files
func Register(registry *parsers.Registry) error {
	if registry == nil {
		return errors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ParserRegistry", "Register", "registry validation")
	}

	if err := registry.Register(filestat.New()); err != nil {
		return errors.WrapInvalid(err, "ParserRegistry", "Register", "filestat parser registration")
	}
	if err := registry.Register(syslog.New()); err != nil {
		return errors.WrapInvalid(err, "ParserRegistry", "Register", "syslog parser registration")
	}
	return nil
}

// NewRegistry creates a registry with every bundled parser registered.
func NewRegistry() (*parsers.Registry, error) {
	registry := parsers.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
