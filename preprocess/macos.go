package preprocess

import (
	"regexp"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

const macOSPreferencesPath = "/Library/Preferences/SystemConfiguration/preferences.plist"

// Matches the XML plist form of the system configuration; binary plists
// are not supported and fail the plugin, leaving the attribute unset.
var plistHostnamePattern = regexp.MustCompile(
	`<key>(?:HostName|LocalHostName|ComputerName)</key>\s*<string>([^<]+)</string>`)

// MacOSHostname reads the hostname from the system configuration plist.
type MacOSHostname struct{}

func NewMacOSHostname() *MacOSHostname { return &MacOSHostname{} }

func (*MacOSHostname) Name() string          { return "macos_hostname" }
func (*MacOSHostname) SupportedOS() []string { return []string{OSMacOS} }
func (*MacOSHostname) Weight() int           { return WeightPath }
func (*MacOSHostname) Attribute() string     { return knowledge.AttrHostname }

func (p *MacOSHostname) Value(searcher vfs.Searcher, _ *knowledge.Base) (event.Value, error) {
	content, err := readFirstMatch(searcher, macOSPreferencesPath)
	if err != nil {
		return event.Value{}, err
	}
	match := plistHostnamePattern.FindStringSubmatch(content)
	if match == nil {
		return event.Value{}, errors.WrapTransient(errors.ErrPreprocessFail, "MacOSHostname", "Value", "no hostname in preferences plist")
	}
	return event.String(match[1]), nil
}
