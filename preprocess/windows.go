package preprocess

import (
	"path"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// Candidate system directories, in the order installations are probed.
var systemRootCandidates = []string{
	"/Windows/System32",
	"/WINNT/System32",
	"/WTSRV/System32",
	"/WINNT35/System32",
}

// WindowsSystemRoot locates the Windows system root directory. Later tiers
// resolve registry-backed facts relative to this path.
type WindowsSystemRoot struct{}

func NewWindowsSystemRoot() *WindowsSystemRoot { return &WindowsSystemRoot{} }

func (*WindowsSystemRoot) Name() string          { return "windows_systemroot" }
func (*WindowsSystemRoot) SupportedOS() []string { return []string{OSWindows} }
func (*WindowsSystemRoot) Weight() int           { return WeightPath }
func (*WindowsSystemRoot) Attribute() string     { return knowledge.AttrSystemRoot }

func (p *WindowsSystemRoot) Value(searcher vfs.Searcher, _ *knowledge.Base) (event.Value, error) {
	for _, candidate := range systemRootCandidates {
		specs, err := searcher.Find([]vfs.FindSpec{{Location: candidate}})
		if err != nil {
			continue
		}
		if len(specs) > 0 {
			return event.String(path.Dir(specs[0].Location)), nil
		}
	}
	return event.Value{}, errors.WrapTransient(errors.ErrPreprocessFail, "WindowsSystemRoot", "Value", "no system directory found")
}
